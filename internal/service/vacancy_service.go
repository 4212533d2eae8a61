package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/notify"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/pkg/cache"
	"github.com/d60-Lab/eip-site/pkg/logger"
	"github.com/d60-Lab/eip-site/pkg/storage"
)

const (
	vacancyPageSize     = 10
	resumeDir           = "applications/resumes"
	additionalDocsDir   = "applications/documents"
	msgDeadlinePassed   = "Application deadline has passed."
	msgUnsupportedFile  = "Unsupported file format. Please upload PDF or Word documents."
	defaultMaxUploadMiB = 5
)

// AppliedMessage 申请成功后的提示文案
func AppliedMessage(title string) string {
	return fmt.Sprintf("Thank you for applying for %s! We have sent a confirmation email and will review your application.", title)
}

// VacancyInput 岗位可编辑字段；更新时忽略 Slug
type VacancyInput struct {
	Title            string        `json:"title"`
	Slug             string        `json:"slug"`
	Description      string        `json:"description"`
	Requirements     string        `json:"requirements"`
	Responsibilities string        `json:"responsibilities"`
	JobType          model.JobType `json:"job_type"`
	Location         string        `json:"location"`
	Deadline         string        `json:"deadline"` // 2006-01-02
	IsPublished      *bool         `json:"is_published"`
}

// ApplicationInput 申请表单
type ApplicationInput struct {
	FullName    string
	Email       string
	Phone       string
	CoverLetter string
	ClientIP    string
	Resume      *Upload
	Additional  *Upload
}

// VacancyPage 岗位列表，附带开放岗位总数
type VacancyPage struct {
	Page[*model.Vacancy]
	ActiveCount int64 `json:"active_count"`
}

// VacancyDetail 岗位详情
type VacancyDetail struct {
	Vacancy        *model.Vacancy `json:"vacancy"`
	IsOpen         bool           `json:"is_open"`
	DaysRemaining  int            `json:"days_remaining"`
	DeadlinePassed bool           `json:"deadline_passed"`
}

type VacancyService interface {
	Create(ctx context.Context, in VacancyInput) (*model.Vacancy, error)
	Update(ctx context.Context, id string, in VacancyInput) (*model.Vacancy, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page int) (*VacancyPage, error)
	Detail(ctx context.Context, slug string) (*VacancyDetail, error)
	Apply(ctx context.Context, slug string, in ApplicationInput) (*model.Application, error)
	ListApplications(ctx context.Context, vacancyID string, page int) (Page[*model.Application], error)
	MarkReviewed(ctx context.Context, applicationID string, reviewed bool) error
}

type vacancyService struct {
	vacancies    repository.VacancyRepository
	applications repository.ApplicationRepository
	store        storage.Storage
	notifier     notify.Notifier
	cache        cache.Cache
	intake       config.IntakeConfig
	clock        Clock
}

func NewVacancyService(
	vacancies repository.VacancyRepository,
	applications repository.ApplicationRepository,
	store storage.Storage,
	notifier notify.Notifier,
	c cache.Cache,
	intake config.IntakeConfig,
	clock Clock,
) VacancyService {
	if c == nil {
		c = cache.Nop{}
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if intake.MaxUploadBytes <= 0 {
		intake.MaxUploadBytes = defaultMaxUploadMiB << 20
	}
	if len(intake.AllowedResumeTypes) == 0 {
		intake.AllowedResumeTypes = []string{".pdf", ".doc", ".docx"}
	}
	return &vacancyService{
		vacancies:    vacancies,
		applications: applications,
		store:        store,
		notifier:     notifier,
		cache:        c,
		intake:       intake,
		clock:        clock,
	}
}

func (s *vacancyService) fromInput(v *model.Vacancy, in VacancyInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return required("title")
	}
	if tooLong(in.Title, model.PostTitleMaxLen) {
		return invalid("title", "title must be at most 200 characters")
	}
	if !in.JobType.Valid() {
		return invalid("job_type", "unknown job type")
	}
	if in.Deadline == "" {
		return required("deadline")
	}
	deadline, err := time.ParseInLocation(time.DateOnly, in.Deadline, time.UTC)
	if err != nil {
		return invalid("deadline", "deadline must be a date in YYYY-MM-DD format")
	}
	v.Title = in.Title
	v.Description = in.Description
	v.Requirements = in.Requirements
	v.Responsibilities = in.Responsibilities
	v.JobType = in.JobType
	v.Location = in.Location
	v.Deadline = deadline
	if in.IsPublished != nil {
		v.IsPublished = *in.IsPublished
	}
	return nil
}

func (s *vacancyService) Create(ctx context.Context, in VacancyInput) (*model.Vacancy, error) {
	v := &model.Vacancy{IsPublished: true}
	if err := s.fromInput(v, in); err != nil {
		return nil, err
	}
	source := in.Slug
	if strings.TrimSpace(source) == "" {
		source = v.Title
	}
	err := createWithSlug(ctx, source, "vacancy", s.vacancies.SlugExists, func(slug string) error {
		v.ID = ""
		v.Slug = slug
		return s.vacancies.Create(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache)
	return v, nil
}

func (s *vacancyService) Update(ctx context.Context, id string, in VacancyInput) (*model.Vacancy, error) {
	v, err := s.vacancies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fromInput(v, in); err != nil {
		return nil, err
	}
	if err := s.vacancies.Update(ctx, v); err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache)
	return v, nil
}

// Delete 级联删除申请及其附件
func (s *vacancyService) Delete(ctx context.Context, id string) error {
	files, err := s.vacancies.Delete(ctx, id)
	if err != nil {
		return err
	}
	for _, key := range files {
		s.removeFile(ctx, key)
	}
	invalidate(ctx, s.cache)
	return nil
}

func (s *vacancyService) List(ctx context.Context, page int) (*VacancyPage, error) {
	page, size, offset := paginate(page, vacancyPageSize, vacancyPageSize, vacancyPageSize)
	items, total, err := s.vacancies.ListOpen(ctx, s.clock.Now(), offset, size)
	if err != nil {
		return nil, err
	}
	return &VacancyPage{Page: newPage(items, total, page, size), ActiveCount: total}, nil
}

// Detail 只展示开放中的岗位，过了截止日期按不存在处理
func (s *vacancyService) Detail(ctx context.Context, slug string) (*VacancyDetail, error) {
	now := s.clock.Now()
	v, err := s.vacancies.GetOpenBySlug(ctx, slug, now)
	if err != nil {
		return nil, err
	}
	return &VacancyDetail{
		Vacancy:        v,
		IsOpen:         v.IsOpen(now),
		DaysRemaining:  v.DaysRemaining(now),
		DeadlinePassed: v.DeadlinePassed(now),
	}, nil
}

// Apply 先完成全部校验，再保存附件和申请记录；写库失败时删除已保存的附件
func (s *vacancyService) Apply(ctx context.Context, slug string, in ApplicationInput) (*model.Application, error) {
	v, err := s.vacancies.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if v.DeadlinePassed(now) {
		return nil, invalid("deadline", msgDeadlinePassed)
	}
	if err := s.validateApplication(&in); err != nil {
		return nil, err
	}

	a := &model.Application{
		ID:          newID(),
		VacancyID:   v.ID,
		FullName:    in.FullName,
		Email:       in.Email,
		Phone:       in.Phone,
		CoverLetter: in.CoverLetter,
		AppliedAt:   now,
		IPAddress:   ipOrNil(in.ClientIP),
	}

	var stored []string
	cleanup := func() {
		for _, key := range stored {
			s.removeFile(ctx, key)
		}
	}
	a.Resume = storage.NewKey(resumeDir, in.Resume.Filename)
	if err := s.store.Save(ctx, a.Resume, in.Resume.Body, in.Resume.ContentType); err != nil {
		return nil, fmt.Errorf("store resume: %w", err)
	}
	stored = append(stored, a.Resume)
	if in.Additional != nil {
		a.AdditionalDocuments = storage.NewKey(additionalDocsDir, in.Additional.Filename)
		if err := s.store.Save(ctx, a.AdditionalDocuments, in.Additional.Body, in.Additional.ContentType); err != nil {
			cleanup()
			return nil, fmt.Errorf("store additional documents: %w", err)
		}
		stored = append(stored, a.AdditionalDocuments)
	}

	if err := s.applications.Create(ctx, a); err != nil {
		cleanup()
		return nil, err
	}

	a.Vacancy = v
	s.notifier.ApplicationReceived(ctx, v, a)
	return a, nil
}

func (s *vacancyService) validateApplication(in *ApplicationInput) error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.CoverLetter = strings.TrimSpace(in.CoverLetter)

	for _, f := range []struct{ name, value string }{
		{"full_name", in.FullName},
		{"email", in.Email},
		{"phone", in.Phone},
		{"cover_letter", in.CoverLetter},
	} {
		if f.value == "" {
			return required(f.name)
		}
	}
	if !validEmail(in.Email) {
		return invalid("email", "Please enter a valid email address")
	}
	if tooLong(in.Phone, 20) {
		return invalid("phone", "phone must be at most 20 characters")
	}
	if in.Resume == nil || in.Resume.Filename == "" {
		return required("resume")
	}
	if err := s.checkDocument("resume", in.Resume); err != nil {
		return err
	}
	if in.Additional != nil && in.Additional.Filename == "" {
		in.Additional = nil
	}
	if in.Additional != nil {
		if err := s.checkDocument("additional_documents", in.Additional); err != nil {
			return err
		}
	}
	return nil
}

// checkDocument 大小与扩展名校验
func (s *vacancyService) checkDocument(field string, u *Upload) error {
	if u.Size > s.intake.MaxUploadBytes {
		label := "Resume"
		if field != "resume" {
			label = "Document"
		}
		return invalid(field, label+" file size must be under "+humanBytes(s.intake.MaxUploadBytes)+".")
	}
	ext := fileExt(u.Filename)
	for _, allowed := range s.intake.AllowedResumeTypes {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}
	return invalid(field, msgUnsupportedFile)
}

func (s *vacancyService) ListApplications(ctx context.Context, vacancyID string, page int) (Page[*model.Application], error) {
	if _, err := s.vacancies.GetByID(ctx, vacancyID); err != nil {
		return Page[*model.Application]{}, err
	}
	page, size, offset := paginate(page, adminPageSize, adminPageSize, adminPageMax)
	items, total, err := s.applications.ListByVacancy(ctx, vacancyID, offset, size)
	if err != nil {
		return Page[*model.Application]{}, err
	}
	return newPage(items, total, page, size), nil
}

func (s *vacancyService) MarkReviewed(ctx context.Context, applicationID string, reviewed bool) error {
	return s.applications.MarkReviewed(ctx, applicationID, reviewed)
}

func (s *vacancyService) removeFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		logger.Warn("delete stored file failed", zap.String("key", key), zap.Error(err))
	}
}

func fileExt(name string) string {
	return strings.ToLower(path.Ext(name))
}

// humanBytes 5242880 -> "5MB"
func humanBytes(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
