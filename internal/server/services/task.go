package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/logging"
	sc "github.com/dmitrijs2005/taskhub/internal/server/config"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
	"github.com/dmitrijs2005/taskhub/internal/server/policy"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskhub/internal/server/taskquery"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// attachmentContentType is the only file type accepted for task attachments.
const attachmentContentType = "application/pdf"

// TaskService implements the task lifecycle under the authorization policy,
// including the scoped listings and the attached file storage.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	notifier    Notifier
	config      *sc.Config
}

// NewTaskService constructs a TaskService using repositories and server config.
func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, logger logging.Logger, notifier Notifier) *TaskService {
	return &TaskService{
		db:          db,
		repomanager: m,
		logger:      logger,
		notifier:    notifier,
		config:      cfg,
	}
}

// CreateTaskParams carries the fields of a new task. AssignedTo takes a user
// id or an email address; empty means the creator assigns the task to
// themselves.
type CreateTaskParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	AssignedTo  string
}

// UpdateTaskParams carries the optional fields of a task update. Nil means
// "leave unchanged". The completed flag is not part of the update surface;
// it only moves through Complete.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	AssignedTo  *string
}

// StorageKey is where a task's attachment lives in the bucket, keyed by the
// assignee so their files group together.
func StorageKey(task *models.Task) string {
	return fmt.Sprintf("users/%s/tasks/%s.pdf", task.AssignedTo, task.ID)
}

// Create stores a new task for a verified actor and notifies the assignee,
// unless the creator assigned the task to themselves.
func (s *TaskService) Create(ctx context.Context, actor models.Actor, params CreateTaskParams) (*models.Task, error) {
	if d := policy.CreateTask(actor); !d.Allowed {
		return nil, &common.PolicyError{Reason: d.Reason}
	}

	assigneeID := actor.ID
	var assignee *models.User
	if params.AssignedTo != "" {
		u, err := s.resolveAssignee(ctx, params.AssignedTo)
		if err != nil {
			return nil, err
		}
		assignee = u
		assigneeID = u.ID
	}

	task, err := s.repomanager.Tasks(s.db).Create(ctx, &models.Task{
		Title:       params.Title,
		Description: params.Description,
		DueDate:     params.DueDate,
		CreatedBy:   actor.ID,
		AssignedTo:  assigneeID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating task: %v", err)
	}

	if err := s.hydrate(ctx, task); err != nil {
		return nil, err
	}

	if assignee != nil && assignee.ID != task.CreatedBy {
		s.notifier.TaskAssigned(task, assignee)
	}
	return task, nil
}

// Get returns a single task. A view denial surfaces as ErrorNotFound so
// callers cannot probe for tasks outside their scope.
func (s *TaskService) Get(ctx context.Context, actor models.Actor, id string) (*models.Task, error) {
	task, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// List returns the tasks visible to the actor, narrowed and ordered by the
// given filter and sort token lists.
func (s *TaskService) List(ctx context.Context, actor models.Actor, filter, sort string) ([]*models.Task, error) {
	q := taskquery.Compose(actor, filter, sort, time.Now())
	tasks, err := s.repomanager.Tasks(s.db).List(ctx, q)
	if err != nil {
		return nil, common.ErrorInternal
	}

	// listings repeat the same handful of users, load each once
	cache := map[string]*models.User{}
	for _, t := range tasks {
		if err := s.hydrateCached(ctx, t, cache); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// Update edits the task's fields. Reassignment notifies the new assignee,
// unless they created the task themselves.
func (s *TaskService) Update(ctx context.Context, actor models.Actor, id string, params UpdateTaskParams) (*models.Task, error) {
	repo := s.repomanager.Tasks(s.db)
	task, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	if d := policy.UpdateTask(actor, task); !d.Allowed {
		return nil, &common.PolicyError{Reason: d.Reason}
	}

	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.DueDate != nil {
		task.DueDate = params.DueDate
	}

	var newAssignee *models.User
	if params.AssignedTo != nil && *params.AssignedTo != "" {
		u, err := s.resolveAssignee(ctx, *params.AssignedTo)
		if err != nil {
			return nil, err
		}
		if u.ID != task.AssignedTo {
			newAssignee = u
			task.AssignedTo = u.ID
		}
	}

	if err := repo.Update(ctx, task); err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.hydrate(ctx, task); err != nil {
		return nil, err
	}

	if newAssignee != nil && newAssignee.ID != task.CreatedBy {
		s.notifier.TaskAssigned(task, newAssignee)
	}
	return task, nil
}

// Complete marks the task done and notifies its creator, unless the creator
// is the assignee. Completing an already completed task changes nothing.
func (s *TaskService) Complete(ctx context.Context, actor models.Actor, id string) (*models.Task, error) {
	repo := s.repomanager.Tasks(s.db)
	task, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	if d := policy.CompleteTask(actor, task); !d.Allowed {
		return nil, &common.PolicyError{Reason: d.Reason}
	}

	alreadyCompleted := task.Completed
	if !alreadyCompleted {
		if err := repo.SetCompleted(ctx, id); err != nil {
			return nil, common.ErrorInternal
		}
		task.Completed = true
	}

	if err := s.hydrate(ctx, task); err != nil {
		return nil, err
	}

	if !alreadyCompleted && task.AssignedTo != task.CreatedBy {
		s.notifier.TaskCompleted(task, task.Creator)
	}
	return task, nil
}

// Delete removes the task. Its attachment, if any, stays in the bucket until
// storage maintenance collects it.
func (s *TaskService) Delete(ctx context.Context, actor models.Actor, id string) error {
	repo := s.repomanager.Tasks(s.db)
	task, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	if d := policy.DeleteTask(actor, task); !d.Allowed {
		return &common.PolicyError{Reason: d.Reason}
	}
	if err := repo.Delete(ctx, id); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// UploadFile attaches a PDF to the task, replacing any previous attachment.
// The edit falls under the same rule as other task edits.
func (s *TaskService) UploadFile(ctx context.Context, actor models.Actor, id string, data []byte) (*models.Task, error) {
	repo := s.repomanager.Tasks(s.db)
	task, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	if d := policy.UpdateTask(actor, task); !d.Allowed {
		return nil, &common.PolicyError{Reason: d.Reason}
	}

	if len(data) == 0 || http.DetectContentType(data) != attachmentContentType {
		return nil, common.NewValidationError("file", "The file must be a file of type: pdf.")
	}

	key := StorageKey(task)
	if err := s.storeObject(ctx, key, data); err != nil {
		return nil, fmt.Errorf("error storing file: %v", err)
	}

	if err := repo.SetFileKey(ctx, id, key); err != nil {
		return nil, common.ErrorInternal
	}
	task.FileKey = &key

	if err := s.hydrate(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DownloadFile returns a short-lived signed URL for the task's attachment.
// Tasks outside the actor's scope and tasks without an attachment both
// surface as ErrorNotFound.
func (s *TaskService) DownloadFile(ctx context.Context, actor models.Actor, id string) (string, error) {
	task, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if !task.HasFile() {
		return "", common.ErrorNotFound
	}
	return s.presignedGetURL(ctx, *task.FileKey)
}

// getVisible loads a task and applies the view rule, mapping a denial to
// ErrorNotFound.
func (s *TaskService) getVisible(ctx context.Context, actor models.Actor, id string) (*models.Task, error) {
	task, err := s.repomanager.Tasks(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	if d := policy.ViewTask(actor, task); !d.Allowed {
		return nil, common.ErrorNotFound
	}
	return task, nil
}

// resolveAssignee accepts a user id or an email address and returns the
// matching user, or ErrAssigneeNotFound.
func (s *TaskService) resolveAssignee(ctx context.Context, ref string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	var user *models.User
	var err error
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		user, err = repo.GetByID(ctx, ref)
	} else {
		user, err = repo.GetByEmail(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAssigneeNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// hydrate resolves the task's creator and assignee references.
func (s *TaskService) hydrate(ctx context.Context, task *models.Task) error {
	return s.hydrateCached(ctx, task, map[string]*models.User{})
}

func (s *TaskService) hydrateCached(ctx context.Context, task *models.Task, cache map[string]*models.User) error {
	repo := s.repomanager.Users(s.db)

	load := func(id string) (*models.User, error) {
		if u, ok := cache[id]; ok {
			return u, nil
		}
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, common.ErrorInternal
		}
		cache[id] = u
		return u, nil
	}

	creator, err := load(task.CreatedBy)
	if err != nil {
		return err
	}
	assignee, err := load(task.AssignedTo)
	if err != nil {
		return err
	}
	task.Creator = creator
	task.Assignee = assignee
	return nil
}

// --- object storage helpers below ---

func (s *TaskService) getS3Client() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func (s *TaskService) storeObject(ctx context.Context, key string, data []byte) error {
	client, err := s.getS3Client()
	if err != nil {
		return err
	}

	bucket := s.config.S3Bucket
	contentType := attachmentContentType

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	return err
}

func (s *TaskService) presignedGetURL(ctx context.Context, key string) (string, error) {
	client, err := s.getS3Client()
	if err != nil {
		return "", err
	}
	presignClient := newS3PresignClient(client)

	bucket := s.config.S3Bucket

	// Presigned GET
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
