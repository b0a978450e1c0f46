package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
)

const defaultMaxImportBytes int64 = 5 << 20

var (
	// ErrDuplicateQuestion indicates a question with the same id already exists.
	ErrDuplicateQuestion = errors.New("question already exists")
	// ErrImportTooLarge indicates the uploaded import file exceeds the size limit.
	ErrImportTooLarge = errors.New("import file too large")
	// ErrImportUnsupportedType indicates the uploaded file is not JSON.
	ErrImportUnsupportedType = errors.New("import file must be JSON")
	// ErrImportInvalid indicates the uploaded file does not hold a question list.
	ErrImportInvalid = errors.New("import file does not contain a valid question list")
)

// QuestionService manages the question bank and its rubrics.
type QuestionService interface {
	Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Get(ctx context.Context, id string) (dto.QuestionResponse, error)
	List(ctx context.Context, subject string) ([]dto.QuestionResponse, error)
	Update(ctx context.Context, id string, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	UpdateRubric(ctx context.Context, id string, payload dto.RubricUpdateRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, payload dto.QuestionImportRequest) (dto.QuestionImportResponse, error)
	ImportFile(ctx context.Context, file *multipart.FileHeader) (dto.QuestionImportResponse, error)
	Export(ctx context.Context, subject string) (dto.QuestionImportRequest, error)
}

type questionService struct {
	repo           repository.QuestionRepository
	activity       ActivityRecorder
	validator      *validator.Validate
	policy         *bluemonday.Policy
	maxImportBytes int64
	logger         zerolog.Logger
}

// NewQuestionService constructs the question service. Activity recording is optional.
func NewQuestionService(repo repository.QuestionRepository, activity ActivityRecorder, validate *validator.Validate, maxImportBytes int64, logger zerolog.Logger) QuestionService {
	if maxImportBytes <= 0 {
		maxImportBytes = defaultMaxImportBytes
	}
	return &questionService{
		repo:           repo,
		activity:       activity,
		validator:      validate,
		policy:         bluemonday.StrictPolicy(),
		maxImportBytes: maxImportBytes,
		logger:         logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := s.buildQuestion(payload)
	if err := s.repo.Create(ctx, &question); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.QuestionResponse{}, ErrDuplicateQuestion
		}
		return dto.QuestionResponse{}, err
	}

	s.record(ctx, ActionQuestionCreated, question.ID, map[string]interface{}{"subject": question.Subject})
	s.logger.Info().Str("question_id", question.ID).Str("subject", question.Subject).Msg("question created")

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Get(ctx context.Context, id string) (dto.QuestionResponse, error) {
	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) List(ctx context.Context, subject string) ([]dto.QuestionResponse, error) {
	questions, err := s.repo.List(ctx, strings.TrimSpace(subject))
	if err != nil {
		return nil, err
	}
	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) Update(ctx context.Context, id string, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	if payload.Subject != nil {
		question.Subject = s.sanitize(*payload.Subject)
	}
	if payload.Topic != nil {
		question.Topic = s.sanitize(*payload.Topic)
	}
	if payload.Text != nil {
		question.Text = s.sanitize(*payload.Text)
	}
	if payload.ExpectedAnswer != nil {
		question.ExpectedAnswer = s.sanitize(*payload.ExpectedAnswer)
	}
	if payload.GradingCriteria != nil {
		question.GradingCriteria = s.sanitize(*payload.GradingCriteria)
	}
	if payload.ReferenceAnswer != nil {
		question.ReferenceAnswer = s.sanitize(*payload.ReferenceAnswer)
	}
	if payload.Rubric != nil {
		question.SetRubric(s.sanitizeRubric(payload.Rubric))
	}
	if payload.TotalPoints != nil {
		question.TotalPoints = *payload.TotalPoints
	}

	return s.save(ctx, question)
}

// UpdateRubric merges the named items into the rubric, replacing items that share a name.
func (s *questionService) UpdateRubric(ctx context.Context, id string, payload dto.RubricUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	rubric := question.RubricItems()
	for name, item := range s.sanitizeRubric(payload.Items) {
		rubric[name] = item
	}
	question.SetRubric(rubric)

	return s.save(ctx, question)
}

func (s *questionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	s.record(ctx, ActionQuestionDeleted, id, nil)
	return nil
}

// Import stores every new question; ids that already exist are reported, not overwritten.
func (s *questionService) Import(ctx context.Context, payload dto.QuestionImportRequest) (dto.QuestionImportResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionImportResponse{}, err
	}

	questions := make([]models.Question, 0, len(payload.Questions))
	for _, item := range payload.Questions {
		questions = append(questions, s.buildQuestion(item))
	}

	imported, failed, err := s.repo.BulkCreate(ctx, questions)
	if err != nil {
		return dto.QuestionImportResponse{}, err
	}

	s.record(ctx, ActionQuestionsImported, "", map[string]interface{}{
		"imported": imported,
		"failed":   len(failed),
	})
	s.logger.Info().Int("imported", imported).Int("failed", len(failed)).Msg("questions imported")

	return dto.QuestionImportResponse{Imported: imported, FailedIDs: failed}, nil
}

// ImportFile accepts either a bare JSON array of questions or an object with a "questions" field.
func (s *questionService) ImportFile(ctx context.Context, file *multipart.FileHeader) (dto.QuestionImportResponse, error) {
	if file == nil {
		return dto.QuestionImportResponse{}, ErrImportInvalid
	}

	data, err := s.readImport(file)
	if err != nil {
		return dto.QuestionImportResponse{}, err
	}

	mime := mimetype.Detect(data)
	if !mime.Is("application/json") && !mime.Is("text/plain") {
		return dto.QuestionImportResponse{}, fmt.Errorf("%w: detected %s", ErrImportUnsupportedType, mime.String())
	}

	var payload dto.QuestionImportRequest
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		err = json.Unmarshal(trimmed, &payload.Questions)
	case bytes.HasPrefix(trimmed, []byte("{")):
		err = json.Unmarshal(trimmed, &payload)
	default:
		err = ErrImportInvalid
	}
	if err != nil {
		return dto.QuestionImportResponse{}, fmt.Errorf("%w: %v", ErrImportInvalid, err)
	}

	return s.Import(ctx, payload)
}

// Export returns the subject's questions in the shape Import accepts.
func (s *questionService) Export(ctx context.Context, subject string) (dto.QuestionImportRequest, error) {
	questions, err := s.repo.List(ctx, strings.TrimSpace(subject))
	if err != nil {
		return dto.QuestionImportRequest{}, err
	}

	export := dto.QuestionImportRequest{Questions: make([]dto.QuestionCreateRequest, 0, len(questions))}
	for _, question := range questions {
		response := dto.NewQuestionResponse(question)
		export.Questions = append(export.Questions, dto.QuestionCreateRequest{
			ID:              response.ID,
			Subject:         response.Subject,
			Topic:           response.Topic,
			Text:            response.Text,
			ExpectedAnswer:  response.ExpectedAnswer,
			GradingCriteria: response.GradingCriteria,
			ReferenceAnswer: response.ReferenceAnswer,
			Rubric:          response.Rubric,
			TotalPoints:     response.TotalPoints,
		})
	}

	return export, nil
}

func (s *questionService) load(ctx context.Context, id string) (models.Question, error) {
	question, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}
		return models.Question{}, err
	}
	return question, nil
}

func (s *questionService) save(ctx context.Context, question models.Question) (dto.QuestionResponse, error) {
	if err := s.repo.Update(ctx, &question); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	updated, err := s.load(ctx, question.ID)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	s.record(ctx, ActionQuestionUpdated, updated.ID, nil)
	return dto.NewQuestionResponse(updated), nil
}

func (s *questionService) buildQuestion(payload dto.QuestionCreateRequest) models.Question {
	id := strings.TrimSpace(payload.ID)
	if id == "" {
		id = uuid.NewString()
	}

	question := models.Question{
		ID:              id,
		Subject:         s.sanitize(payload.Subject),
		Topic:           s.sanitize(payload.Topic),
		Text:            s.sanitize(payload.Text),
		ExpectedAnswer:  s.sanitize(payload.ExpectedAnswer),
		GradingCriteria: s.sanitize(payload.GradingCriteria),
		ReferenceAnswer: s.sanitize(payload.ReferenceAnswer),
		TotalPoints:     payload.TotalPoints,
	}
	question.SetRubric(s.sanitizeRubric(payload.Rubric))
	return question
}

func (s *questionService) sanitizeRubric(items map[string]dto.RubricItemRequest) map[string]models.RubricItem {
	rubric := dto.RubricItemsToModel(items)
	for name, item := range rubric {
		item.Description = s.sanitize(item.Description)
		item.Keywords = s.sanitizeLabels(item.Keywords)
		item.Concepts = s.sanitizeLabels(item.Concepts)
		rubric[name] = item
	}
	return rubric
}

func (s *questionService) sanitizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if cleaned := s.sanitize(label); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

func (s *questionService) sanitize(value string) string {
	return plainText(s.policy, value)
}

// plainText strips markup but keeps plain text characters such as "<" and "&" intact.
func plainText(policy *bluemonday.Policy, value string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(value)))
}

func (s *questionService) readImport(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > s.maxImportBytes {
		return nil, ErrImportTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, s.maxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	if int64(len(data)) > s.maxImportBytes {
		return nil, ErrImportTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrImportInvalid
	}

	return data, nil
}

func (s *questionService) record(ctx context.Context, action, questionID string, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    systemActor,
		Action:     action,
		EntityType: "question",
		EntityID:   questionID,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record question activity")
	}
}
