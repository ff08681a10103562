package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresStore implements Store on a relational database. Each operation
// is a single statement; atomicity across statements is not provided.
type PostgresStore struct {
	DB *sql.DB
}

const projectColumns = "id, name, description, location, status, image, start_date, end_date, created_at, updated_at"

const documentColumns = "id, name, description, type, project_id, user_id, file_path, storage_type, file_size, mime_type, is_analyzed, analysis, created_at, updated_at"

func (s *PostgresStore) GetUser(ctx context.Context, id int) (User, error) {
	const query = `
SELECT id, username, password, full_name, role, created_at
FROM users
WHERE id = $1`
	return scanUser(s.DB.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const query = `
SELECT id, username, password, full_name, role, created_at
FROM users
WHERE username = $1`
	return scanUser(s.DB.QueryRowContext(ctx, query, username))
}

func (s *PostgresStore) CreateUser(ctx context.Context, data NewUser) (User, error) {
	role := data.Role
	if role == "" {
		role = "user"
	}
	const query = `
INSERT INTO users (username, password, full_name, role, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	user := User{
		Username:  data.Username,
		Password:  data.Password,
		FullName:  data.FullName,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	err := s.DB.QueryRowContext(ctx, query, user.Username, user.Password, user.FullName, user.Role, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id int) (Project, error) {
	query := fmt.Sprintf("SELECT %s FROM projects WHERE id = $1", projectColumns)
	return scanProject(s.DB.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetProjects(ctx context.Context) ([]Project, error) {
	query := fmt.Sprintf("SELECT %s FROM projects ORDER BY updated_at DESC, id DESC", projectColumns)
	return s.queryProjects(ctx, query)
}

func (s *PostgresStore) GetRecentProjects(ctx context.Context, limit int) ([]Project, error) {
	if limit <= 0 {
		limit = DefaultRecentProjects
	}
	query := fmt.Sprintf("SELECT %s FROM projects ORDER BY updated_at DESC, id DESC LIMIT $1", projectColumns)
	return s.queryProjects(ctx, query, limit)
}

func (s *PostgresStore) CreateProject(ctx context.Context, data NewProject) (Project, error) {
	status := data.Status
	if status == "" {
		status = StatusActive
	}
	now := time.Now().UTC()
	const query = `
INSERT INTO projects (name, description, location, status, image, start_date, end_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`
	project := Project{
		Name:        data.Name,
		Description: data.Description,
		Location:    data.Location,
		Status:      status,
		Image:       data.Image,
		StartDate:   data.StartDate,
		EndDate:     data.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.DB.QueryRowContext(ctx, query,
		project.Name,
		nullString(project.Description),
		project.Location,
		project.Status,
		nullString(project.Image),
		nullTime(project.StartDate),
		nullTime(project.EndDate),
		project.CreatedAt,
		project.UpdatedAt,
	).Scan(&project.ID)
	if err != nil {
		return Project{}, err
	}
	return project, nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, id int, data ProjectUpdate) (Project, error) {
	set := newSetClause()
	set.add("name", data.Name)
	set.add("description", data.Description)
	set.add("location", data.Location)
	set.add("status", data.Status)
	set.add("image", data.Image)
	if data.StartDate != nil {
		set.addValue("start_date", *data.StartDate)
	}
	if data.EndDate != nil {
		set.addValue("end_date", *data.EndDate)
	}
	set.addValue("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE projects SET %s WHERE id = $%d RETURNING %s",
		set.assignments(), set.next(), projectColumns)
	return scanProject(s.DB.QueryRowContext(ctx, query, append(set.args, id)...))
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id int) (bool, error) {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id int) (Document, error) {
	query := fmt.Sprintf("SELECT %s FROM documents WHERE id = $1", documentColumns)
	return scanDocument(s.DB.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetDocuments(ctx context.Context) ([]Document, error) {
	query := fmt.Sprintf("SELECT %s FROM documents ORDER BY created_at DESC, id DESC", documentColumns)
	return s.queryDocuments(ctx, query)
}

func (s *PostgresStore) GetDocumentsByProject(ctx context.Context, projectID int) ([]Document, error) {
	query := fmt.Sprintf("SELECT %s FROM documents WHERE project_id = $1 ORDER BY created_at DESC, id DESC", documentColumns)
	return s.queryDocuments(ctx, query, projectID)
}

func (s *PostgresStore) GetDocumentsByUser(ctx context.Context, userID int) ([]Document, error) {
	query := fmt.Sprintf("SELECT %s FROM documents WHERE user_id = $1 ORDER BY created_at DESC, id DESC", documentColumns)
	return s.queryDocuments(ctx, query, userID)
}

func (s *PostgresStore) GetRecentDocuments(ctx context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = DefaultRecentDocuments
	}
	query := fmt.Sprintf("SELECT %s FROM documents ORDER BY created_at DESC, id DESC LIMIT $1", documentColumns)
	return s.queryDocuments(ctx, query, limit)
}

func (s *PostgresStore) CreateDocument(ctx context.Context, data NewDocument) (Document, error) {
	now := time.Now().UTC()
	const query = `
INSERT INTO documents (name, description, type, project_id, user_id, file_path, storage_type, file_size, mime_type, is_analyzed, analysis, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, NULL, $10, $11)
RETURNING id`
	doc := Document{
		Name:        data.Name,
		Description: data.Description,
		Type:        data.Type,
		ProjectID:   data.ProjectID,
		UserID:      data.UserID,
		FilePath:    data.FilePath,
		StorageType: data.StorageType,
		FileSize:    data.FileSize,
		MimeType:    data.MimeType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.DB.QueryRowContext(ctx, query,
		doc.Name,
		nullString(doc.Description),
		doc.Type,
		nullInt(doc.ProjectID),
		doc.UserID,
		doc.FilePath,
		doc.StorageType,
		doc.FileSize,
		doc.MimeType,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, id int, data DocumentUpdate) (Document, error) {
	set := newSetClause()
	set.add("name", data.Name)
	set.add("description", data.Description)
	set.add("type", data.Type)
	if data.ProjectID != nil {
		set.addValue("project_id", *data.ProjectID)
	}
	set.add("file_path", data.FilePath)
	set.add("storage_type", data.StorageType)
	if data.FileSize != nil {
		set.addValue("file_size", *data.FileSize)
	}
	set.add("mime_type", data.MimeType)
	set.addValue("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = $%d RETURNING %s",
		set.assignments(), set.next(), documentColumns)
	return scanDocument(s.DB.QueryRowContext(ctx, query, append(set.args, id)...))
}

func (s *PostgresStore) UpdateDocumentAnalysis(ctx context.Context, id int, analysis Analysis) (Document, error) {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return Document{}, fmt.Errorf("marshal analysis: %w", err)
	}
	query := fmt.Sprintf(`
UPDATE documents
SET analysis = $1, is_analyzed = TRUE, updated_at = $2
WHERE id = $3
RETURNING %s`, documentColumns)
	return scanDocument(s.DB.QueryRowContext(ctx, query, payload, time.Now().UTC(), id))
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id int) (bool, error) {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats

	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&stats.TotalDocuments); err != nil {
		return Stats{}, err
	}
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects WHERE status = $1", StatusActive).Scan(&stats.ActiveProjects); err != nil {
		return Stats{}, err
	}

	now := time.Now().UTC()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE created_at >= $1", startOfMonth).Scan(&stats.DocumentsThisMonth); err != nil {
		return Stats{}, err
	}

	var totalBytes sql.NullInt64
	if err := s.DB.QueryRowContext(ctx, "SELECT SUM(file_size) FROM documents").Scan(&totalBytes); err != nil {
		return Stats{}, err
	}
	stats.Storage = formatBytes(totalBytes.Int64)

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.FullName, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func scanProject(row rowScanner) (Project, error) {
	var project Project
	var description, image sql.NullString
	var startDate, endDate sql.NullTime
	err := row.Scan(
		&project.ID,
		&project.Name,
		&description,
		&project.Location,
		&project.Status,
		&image,
		&startDate,
		&endDate,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	if description.Valid {
		project.Description = description.String
	}
	if image.Valid {
		project.Image = image.String
	}
	if startDate.Valid {
		t := startDate.Time
		project.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		project.EndDate = &t
	}
	return project, nil
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var description sql.NullString
	var projectID sql.NullInt64
	var analysisRaw []byte
	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&description,
		&doc.Type,
		&projectID,
		&doc.UserID,
		&doc.FilePath,
		&doc.StorageType,
		&doc.FileSize,
		&doc.MimeType,
		&doc.IsAnalyzed,
		&analysisRaw,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if description.Valid {
		doc.Description = description.String
	}
	if projectID.Valid {
		id := int(projectID.Int64)
		doc.ProjectID = &id
	}
	if len(analysisRaw) > 0 {
		var analysis Analysis
		if err := json.Unmarshal(analysisRaw, &analysis); err != nil {
			return Document{}, fmt.Errorf("unmarshal analysis: %w", err)
		}
		doc.Analysis = &analysis
	}
	return doc, nil
}

func (s *PostgresStore) queryProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// setClause accumulates SET assignments for partial updates. Column names
// are fixed strings supplied by the callers above, never user input.
type setClause struct {
	parts []string
	args  []any
}

func newSetClause() *setClause {
	return &setClause{}
}

func (s *setClause) add(column string, value *string) {
	if value == nil {
		return
	}
	s.addValue(column, *value)
}

func (s *setClause) addValue(column string, value any) {
	s.args = append(s.args, value)
	s.parts = append(s.parts, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setClause) assignments() string {
	return strings.Join(s.parts, ", ")
}

// next returns the placeholder index for the argument following the
// accumulated ones.
func (s *setClause) next() int {
	return len(s.args) + 1
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

var _ Store = (*PostgresStore)(nil)
