package gormstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"bountyhooks/pkg/storage"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Config mirrors the storage section of the application config.
type Config struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	TablePrefix string `yaml:"table_prefix"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// Store implements the storage interfaces on top of GORM.
type Store struct {
	db     *gorm.DB
	tables tableNames
}

type tableNames struct {
	repositories string
	bounties     string
	users        string
	claims       string
}

var (
	_ storage.RepositoryStore = (*Store)(nil)
	_ storage.BountyStore     = (*Store)(nil)
	_ storage.UserStore       = (*Store)(nil)
	_ storage.ClaimStore      = (*Store)(nil)
)

type repositoryRow struct {
	FullName   string    `gorm:"column:full_name;primaryKey;size:512"`
	ID         int64     `gorm:"column:id;index"`
	Owner      string    `gorm:"column:owner;size:255;not null"`
	Name       string    `gorm:"column:name;size:255;not null"`
	HookSecret string    `gorm:"column:hook_secret;size:255"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type bountyRow struct {
	IssueID         int64     `gorm:"column:issue_id;primaryKey;autoIncrement:false"`
	RepoID          int64     `gorm:"column:repo_id;not null;index"`
	RepoName        string    `gorm:"column:repo_name;size:255"`
	Owner           string    `gorm:"column:owner;size:255"`
	IssueNumber     int       `gorm:"column:issue_number;not null"`
	Title           string    `gorm:"column:title;type:text"`
	HTMLURL         string    `gorm:"column:html_url;size:1024"`
	State           string    `gorm:"column:state;size:32;not null"`
	ClosingCommitID *string   `gorm:"column:closing_commit_id;size:64"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type userRow struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Login     string    `gorm:"column:login;size:255;not null"`
	Name      string    `gorm:"column:name;size:255"`
	Email     string    `gorm:"column:email;size:255"`
	AvatarURL string    `gorm:"column:avatar_url;size:1024"`
	ExtraJSON string    `gorm:"column:extra_json;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type claimRow struct {
	PRID        int64     `gorm:"column:pr_id;primaryKey;autoIncrement:false"`
	RepoID      int64     `gorm:"column:repo_id;not null;index"`
	PRNumber    int       `gorm:"column:pr_number;not null"`
	UserID      int64     `gorm:"column:user_id;not null"`
	IssueNumber int       `gorm:"column:issue_number;not null"`
	State       string    `gorm:"column:state;size:32;not null"`
	CommitID    *string   `gorm:"column:commit_id;size:64"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Open creates a GORM-backed store.
func Open(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("storage dsn is required")
	}
	driver := normalizeDriver(cfg.Driver)
	if driver == "" {
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Driver)
	}

	gormDB, err := openGorm(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	prefix := cfg.TablePrefix
	if prefix == "" {
		prefix = "bounty_"
	}
	store := &Store{
		db: gormDB,
		tables: tableNames{
			repositories: prefix + "repositories",
			bounties:     prefix + "issues",
			users:        prefix + "users",
			claims:       prefix + "pull_requests",
		},
	}
	if cfg.AutoMigrate {
		if err := store.migrate(); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertRepository inserts or updates a repository keyed by full name.
func (s *Store) UpsertRepository(ctx context.Context, record storage.RepositoryRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if record.FullName == "" {
		return errors.New("repository full_name is required")
	}
	data := repositoryRow{
		ID:         record.ID,
		Owner:      record.Owner,
		Name:       record.Name,
		FullName:   record.FullName,
		HookSecret: record.HookSecret,
	}
	return s.db.Table(s.tables.repositories).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "full_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"id", "owner", "name", "hook_secret", "updated_at"}),
		}).
		Create(&data).Error
}

// GetRepository returns the repository with the given full name, or nil.
func (s *Store) GetRepository(ctx context.Context, fullName string) (*storage.RepositoryRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var data repositoryRow
	err := s.db.Table(s.tables.repositories).
		WithContext(ctx).
		Where("full_name = ?", fullName).
		Take(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &storage.RepositoryRecord{
		ID:         data.ID,
		Owner:      data.Owner,
		Name:       data.Name,
		FullName:   data.FullName,
		HookSecret: data.HookSecret,
		CreatedAt:  data.CreatedAt,
		UpdatedAt:  data.UpdatedAt,
	}, nil
}

// UpsertBounty inserts a bounty issue or refreshes its descriptive columns.
// An existing closing commit is left untouched.
func (s *Store) UpsertBounty(ctx context.Context, record storage.BountyRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if record.IssueID == 0 {
		return errors.New("bounty issue_id is required")
	}
	if record.State == "" {
		record.State = "open"
	}
	data := bountyRow{
		IssueID:         record.IssueID,
		RepoID:          record.RepoID,
		RepoName:        record.RepoName,
		Owner:           record.Owner,
		IssueNumber:     record.IssueNumber,
		Title:           record.Title,
		HTMLURL:         record.HTMLURL,
		State:           record.State,
		ClosingCommitID: record.ClosingCommitID,
	}
	return s.db.Table(s.tables.bounties).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "issue_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"repo_id", "repo_name", "owner", "issue_number", "title", "html_url", "updated_at"}),
		}).
		Create(&data).Error
}

// CloseBounty marks a bounty issue as closed by commitID.
func (s *Store) CloseBounty(ctx context.Context, issueID int64, commitID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	result := s.db.Table(s.tables.bounties).
		WithContext(ctx).
		Where("issue_id = ?", issueID).
		Updates(map[string]interface{}{
			"state":             "closed",
			"closing_commit_id": commitID,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("close bounty %d: %w", issueID, storage.ErrNotFound)
	}
	return nil
}

// ListBounties lists bounty issues of a repository.
func (s *Store) ListBounties(ctx context.Context, repoID int64) ([]storage.BountyRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var data []bountyRow
	err := s.db.Table(s.tables.bounties).
		WithContext(ctx).
		Where("repo_id = ?", repoID).
		Order("issue_number asc").
		Find(&data).Error
	if err != nil {
		return nil, err
	}
	records := make([]storage.BountyRecord, 0, len(data))
	for _, item := range data {
		records = append(records, storage.BountyRecord{
			RepoID:          item.RepoID,
			RepoName:        item.RepoName,
			Owner:           item.Owner,
			IssueID:         item.IssueID,
			IssueNumber:     item.IssueNumber,
			Title:           item.Title,
			HTMLURL:         item.HTMLURL,
			State:           item.State,
			ClosingCommitID: item.ClosingCommitID,
			CreatedAt:       item.CreatedAt,
			UpdatedAt:       item.UpdatedAt,
		})
	}
	return records, nil
}

// CreateUser inserts a user if absent and refreshes its profile otherwise.
func (s *Store) CreateUser(ctx context.Context, record storage.UserRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if record.ID == 0 {
		return errors.New("user id is required")
	}
	data := userRow{
		ID:        record.ID,
		Login:     record.Login,
		Name:      record.Name,
		Email:     record.Email,
		AvatarURL: record.AvatarURL,
		ExtraJSON: record.ExtraJSON,
	}
	return s.db.Table(s.tables.users).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"login", "name", "avatar_url", "extra_json", "updated_at"}),
		}).
		Create(&data).Error
}

// GetUser returns the user with the given external id, or nil.
func (s *Store) GetUser(ctx context.Context, id int64) (*storage.UserRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var data userRow
	err := s.db.Table(s.tables.users).
		WithContext(ctx).
		Where("id = ?", id).
		Take(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &storage.UserRecord{
		ID:        data.ID,
		Login:     data.Login,
		Name:      data.Name,
		Email:     data.Email,
		AvatarURL: data.AvatarURL,
		ExtraJSON: data.ExtraJSON,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}, nil
}

// SaveClaim upserts a claim keyed by pull request id.
func (s *Store) SaveClaim(ctx context.Context, record storage.ClaimRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if record.PRID == 0 {
		return errors.New("claim pr_id is required")
	}
	if record.State == "" {
		return errors.New("claim state is required")
	}
	data := toClaimRow(record)
	return s.db.Table(s.tables.claims).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pr_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"repo_id", "pr_number", "user_id", "issue_number", "state", "commit_id", "updated_at"}),
		}).
		Create(&data).Error
}

// GetClaim returns the claim for a pull request id, or nil.
func (s *Store) GetClaim(ctx context.Context, prID int64) (*storage.ClaimRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var data claimRow
	err := s.db.Table(s.tables.claims).
		WithContext(ctx).
		Where("pr_id = ?", prID).
		Take(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := fromClaimRow(data)
	return &record, nil
}

// ListClaims lists claims of a repository, newest first.
func (s *Store) ListClaims(ctx context.Context, repoID int64) ([]storage.ClaimRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var data []claimRow
	err := s.db.Table(s.tables.claims).
		WithContext(ctx).
		Where("repo_id = ?", repoID).
		Order("updated_at desc").
		Find(&data).Error
	if err != nil {
		return nil, err
	}
	records := make([]storage.ClaimRecord, 0, len(data))
	for _, item := range data {
		records = append(records, fromClaimRow(item))
	}
	return records, nil
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	return nil
}

func (s *Store) migrate() error {
	migrations := []struct {
		table string
		model interface{}
	}{
		{s.tables.repositories, &repositoryRow{}},
		{s.tables.bounties, &bountyRow{}},
		{s.tables.users, &userRow{}},
		{s.tables.claims, &claimRow{}},
	}
	for _, m := range migrations {
		if err := s.db.Table(m.table).AutoMigrate(m.model); err != nil {
			return fmt.Errorf("migrate %s: %w", m.table, err)
		}
	}
	return nil
}

func toClaimRow(record storage.ClaimRecord) claimRow {
	return claimRow{
		PRID:        record.PRID,
		RepoID:      record.RepoID,
		PRNumber:    record.PRNumber,
		UserID:      record.UserID,
		IssueNumber: record.IssueNumber,
		State:       record.State,
		CommitID:    record.CommitID,
	}
}

func fromClaimRow(data claimRow) storage.ClaimRecord {
	return storage.ClaimRecord{
		RepoID:      data.RepoID,
		PRID:        data.PRID,
		PRNumber:    data.PRNumber,
		UserID:      data.UserID,
		IssueNumber: data.IssueNumber,
		State:       data.State,
		CommitID:    data.CommitID,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}

func normalizeDriver(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "postgres", "postgresql", "pgx":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3", "":
		return "sqlite"
	default:
		return ""
	}
}

// logOutput receives gorm warnings and slow query lines.
var logOutput io.Writer = os.Stdout

// newGormLogger logs at Warn and stays quiet on lookups that find no row.
func newGormLogger(out io.Writer) logger.Interface {
	return logger.New(log.New(out, "bountyhooks/gorm ", log.LstdFlags|log.Lmicroseconds), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func openGorm(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: newGormLogger(logOutput)}
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}
