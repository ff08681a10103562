package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound signals that no entity exists for the requested id. It is an
// expected outcome, not a server fault.
var ErrNotFound = errors.New("not found")

// Document storage backends an uploaded file can live in.
const (
	StorageSupabase    = "supabase"
	StorageGoogleDrive = "googledrive"
)

// Project statuses.
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// User is the owner of uploaded documents. Authentication is out of scope;
// the password is stored opaque, exactly as received.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser carries the fields for creating a user.
type NewUser struct {
	Username string
	Password string
	FullName string
	Role     string
}

// Project is a construction project documents can be filed under.
type Project struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location"`
	Status      string     `json:"status"`
	Image       string     `json:"image,omitempty"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewProject carries the fields for creating a project.
type NewProject struct {
	Name        string
	Description string
	Location    string
	Status      string
	Image       string
	StartDate   *time.Time
	EndDate     *time.Time
}

// ProjectUpdate is a partial patch; nil fields are left untouched.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Location    *string
	Status      *string
	Image       *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// Analysis is the structured metadata derived from document content.
type Analysis struct {
	Summary    string    `json:"summary"`
	Keywords   []string  `json:"keywords"`
	Category   string    `json:"category"`
	Dates      []string  `json:"dates,omitempty"`
	Values     []string  `json:"values,omitempty"`
	Entities   []string  `json:"entities,omitempty"`
	FileType   string    `json:"fileType,omitempty"`
	FileName   string    `json:"fileName,omitempty"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

// Document is an uploaded file's metadata record. FilePath is the locator
// returned by whichever storage backend received the bytes.
type Document struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	ProjectID   *int      `json:"projectId"`
	UserID      int       `json:"userId"`
	FilePath    string    `json:"filePath"`
	StorageType string    `json:"storageType"`
	FileSize    int64     `json:"fileSize"`
	MimeType    string    `json:"mimeType"`
	IsAnalyzed  bool      `json:"isAnalyzed"`
	Analysis    *Analysis `json:"analysis"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewDocument carries the fields for creating a document record.
type NewDocument struct {
	Name        string
	Description string
	Type        string
	ProjectID   *int
	UserID      int
	FilePath    string
	StorageType string
	FileSize    int64
	MimeType    string
}

// DocumentUpdate is a partial patch; nil fields are left untouched.
type DocumentUpdate struct {
	Name        *string
	Description *string
	Type        *string
	ProjectID   *int
	FilePath    *string
	StorageType *string
	FileSize    *int64
	MimeType    *string
}

// Stats is the dashboard summary.
type Stats struct {
	TotalDocuments     int    `json:"totalDocuments"`
	ActiveProjects     int    `json:"activeProjects"`
	DocumentsThisMonth int    `json:"documentsThisMonth"`
	Storage            string `json:"storage"`
}

// Default page sizes for the recent listings.
const (
	DefaultRecentProjects  = 3
	DefaultRecentDocuments = 4
)

// Store is the persistence contract shared by the in-memory and Postgres
// implementations. The variant is chosen once at startup.
type Store interface {
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, data NewUser) (User, error)

	GetProject(ctx context.Context, id int) (Project, error)
	GetProjects(ctx context.Context) ([]Project, error)
	GetRecentProjects(ctx context.Context, limit int) ([]Project, error)
	CreateProject(ctx context.Context, data NewProject) (Project, error)
	UpdateProject(ctx context.Context, id int, data ProjectUpdate) (Project, error)
	DeleteProject(ctx context.Context, id int) (bool, error)

	GetDocument(ctx context.Context, id int) (Document, error)
	GetDocuments(ctx context.Context) ([]Document, error)
	GetDocumentsByProject(ctx context.Context, projectID int) ([]Document, error)
	GetDocumentsByUser(ctx context.Context, userID int) ([]Document, error)
	GetRecentDocuments(ctx context.Context, limit int) ([]Document, error)
	CreateDocument(ctx context.Context, data NewDocument) (Document, error)
	UpdateDocument(ctx context.Context, id int, data DocumentUpdate) (Document, error)
	UpdateDocumentAnalysis(ctx context.Context, id int, analysis Analysis) (Document, error)
	DeleteDocument(ctx context.Context, id int) (bool, error)

	GetStats(ctx context.Context) (Stats, error)
}

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// formatBytes renders a byte total with the largest unit that keeps the
// value above 1, always with one decimal place. Zero is special-cased.
func formatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}
