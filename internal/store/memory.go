package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a volatile, in-process Store used when no database is
// configured. Identity counters are monotonic; ids are never re-used after
// deletion.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[int]User
	projects  map[int]Project
	documents map[int]Document
	userID    int
	projectID int
	docID     int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int]User),
		projects:  make(map[int]Project),
		documents: make(map[int]Document),
	}
}

// Seed loads the default admin user and a few sample projects for
// development and testing.
func (s *MemoryStore) Seed(ctx context.Context) error {
	if _, err := s.CreateUser(ctx, NewUser{
		Username: "admin",
		Password: "admin123",
		FullName: "System Administrator",
		Role:     "admin",
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	inOneYear := now.AddDate(1, 0, 0)
	inSixMonths := now.AddDate(0, 6, 0)

	samples := []NewProject{
		{
			Name:        "Grand Residence Apartment Tower",
			Description: "High-rise residential construction, 32 floors",
			Location:    "South Jakarta",
			Status:      StatusActive,
			StartDate:   &now,
			EndDate:     &inOneYear,
		},
		{
			Name:        "Harbor Bridge Extension",
			Description: "Extension of the existing harbor crossing",
			Location:    "Surabaya",
			Status:      StatusActive,
			StartDate:   &now,
			EndDate:     &inSixMonths,
		},
		{
			Name:        "Riverside Tech Park",
			Description: "Mixed-use technology campus development",
			Location:    "Bandung",
			Status:      StatusPending,
			StartDate:   &now,
		},
	}
	for _, p := range samples {
		if _, err := s.CreateProject(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id int) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) CreateUser(ctx context.Context, data NewUser) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID++
	role := data.Role
	if role == "" {
		role = "user"
	}
	user := User{
		ID:        s.userID,
		Username:  data.Username,
		Password:  data.Password,
		FullName:  data.FullName,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *MemoryStore) GetProject(ctx context.Context, id int) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	project, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return project, nil
}

func (s *MemoryStore) GetProjects(ctx context.Context) ([]Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedProjects(), nil
}

func (s *MemoryStore) GetRecentProjects(ctx context.Context, limit int) ([]Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentProjects
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := s.sortedProjects()
	if len(projects) > limit {
		projects = projects[:limit]
	}
	return projects, nil
}

func (s *MemoryStore) CreateProject(ctx context.Context, data NewProject) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectID++
	status := data.Status
	if status == "" {
		status = StatusActive
	}
	now := time.Now().UTC()
	project := Project{
		ID:          s.projectID,
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
	s.projects[project.ID] = project
	return project, nil
}

func (s *MemoryStore) UpdateProject(ctx context.Context, id int, data ProjectUpdate) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	if data.Name != nil {
		project.Name = *data.Name
	}
	if data.Description != nil {
		project.Description = *data.Description
	}
	if data.Location != nil {
		project.Location = *data.Location
	}
	if data.Status != nil {
		project.Status = *data.Status
	}
	if data.Image != nil {
		project.Image = *data.Image
	}
	if data.StartDate != nil {
		project.StartDate = data.StartDate
	}
	if data.EndDate != nil {
		project.EndDate = data.EndDate
	}
	project.UpdatedAt = stampAfter(project.UpdatedAt)
	s.projects[id] = project
	return project, nil
}

func (s *MemoryStore) DeleteProject(ctx context.Context, id int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return false, nil
	}
	delete(s.projects, id)
	return true, nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id int) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) GetDocuments(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDocuments(nil), nil
}

func (s *MemoryStore) GetDocumentsByProject(ctx context.Context, projectID int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDocuments(func(d Document) bool {
		return d.ProjectID != nil && *d.ProjectID == projectID
	}), nil
}

func (s *MemoryStore) GetDocumentsByUser(ctx context.Context, userID int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDocuments(func(d Document) bool {
		return d.UserID == userID
	}), nil
}

func (s *MemoryStore) GetRecentDocuments(ctx context.Context, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentDocuments
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.sortedDocuments(nil)
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *MemoryStore) CreateDocument(ctx context.Context, data NewDocument) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docID++
	now := time.Now().UTC()
	doc := Document{
		ID:          s.docID,
		Name:        data.Name,
		Description: data.Description,
		Type:        data.Type,
		ProjectID:   data.ProjectID,
		UserID:      data.UserID,
		FilePath:    data.FilePath,
		StorageType: data.StorageType,
		FileSize:    data.FileSize,
		MimeType:    data.MimeType,
		IsAnalyzed:  false,
		Analysis:    nil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.documents[doc.ID] = doc
	return doc, nil
}

func (s *MemoryStore) UpdateDocument(ctx context.Context, id int, data DocumentUpdate) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	if data.Name != nil {
		doc.Name = *data.Name
	}
	if data.Description != nil {
		doc.Description = *data.Description
	}
	if data.Type != nil {
		doc.Type = *data.Type
	}
	if data.ProjectID != nil {
		doc.ProjectID = data.ProjectID
	}
	if data.FilePath != nil {
		doc.FilePath = *data.FilePath
	}
	if data.StorageType != nil {
		doc.StorageType = *data.StorageType
	}
	if data.FileSize != nil {
		doc.FileSize = *data.FileSize
	}
	if data.MimeType != nil {
		doc.MimeType = *data.MimeType
	}
	doc.UpdatedAt = stampAfter(doc.UpdatedAt)
	s.documents[id] = doc
	return doc, nil
}

func (s *MemoryStore) UpdateDocumentAnalysis(ctx context.Context, id int, analysis Analysis) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		// The document may have been deleted while enrichment ran.
		return Document{}, ErrNotFound
	}
	copied := analysis
	doc.Analysis = &copied
	doc.IsAnalyzed = true
	doc.UpdatedAt = stampAfter(doc.UpdatedAt)
	s.documents[id] = doc
	return doc, nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, id int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return false, nil
	}
	delete(s.documents, id)
	return true, nil
}

func (s *MemoryStore) GetStats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := 0
	for _, p := range s.projects {
		if p.Status == StatusActive {
			active++
		}
	}

	now := time.Now().UTC()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	thisMonth := 0
	var totalBytes int64
	for _, d := range s.documents {
		if !d.CreatedAt.Before(startOfMonth) {
			thisMonth++
		}
		totalBytes += d.FileSize
	}

	return Stats{
		TotalDocuments:     len(s.documents),
		ActiveProjects:     active,
		DocumentsThisMonth: thisMonth,
		Storage:            formatBytes(totalBytes),
	}, nil
}

// stampAfter returns the current time, nudged forward if the clock has not
// advanced past prev. Every update must be strictly newer than the state it
// replaces so recency ordering stays stable.
func stampAfter(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

// sortedProjects returns all projects newest-updated first. Callers hold
// the read lock.
func (s *MemoryStore) sortedProjects() []Project {
	projects := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].UpdatedAt.Equal(projects[j].UpdatedAt) {
			return projects[i].ID > projects[j].ID
		}
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
	return projects
}

// sortedDocuments returns documents newest-created first, optionally
// filtered. Callers hold the read lock.
func (s *MemoryStore) sortedDocuments(keep func(Document) bool) []Document {
	docs := make([]Document, 0, len(s.documents))
	for _, d := range s.documents {
		if keep != nil && !keep(d) {
			continue
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs
}

var _ Store = (*MemoryStore)(nil)
