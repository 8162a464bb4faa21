// Package domain holds the plain records exchanged with the catalog backend.
// JSON tags follow the backend's wire names. The server owns the
// authoritative copy of every record; the client only keeps request-scoped
// copies.
package domain

// Book is a catalog entry. Author and Genre are display names returned by
// list endpoints; AuthorID and GenreID are used when creating or updating.
type Book struct {
	ID            int    `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	Author        string `json:"author,omitempty" yaml:"author,omitempty"`
	Genre         string `json:"genre,omitempty" yaml:"genre,omitempty"`
	AuthorID      int    `json:"author_id,omitempty" yaml:"author_id,omitempty"`
	GenreID       int    `json:"genre_id,omitempty" yaml:"genre_id,omitempty"`
	YearPublished int    `json:"year_published,omitempty" yaml:"year_published,omitempty"`
	Summary       string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// BookInput is the body for creating or updating a book. Zero fields are
// omitted so partial updates only touch what the caller set.
type BookInput struct {
	Title         string `json:"title,omitempty"`
	AuthorID      int    `json:"author_id,omitempty"`
	GenreID       int    `json:"genre_id,omitempty"`
	YearPublished int    `json:"year_published,omitempty"`
	Author        string `json:"author,omitempty"`
	Genre         string `json:"genre,omitempty"`
}

// Author is a book author.
type Author struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Genre is a book genre.
type Genre struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// NameInput is the body for author and genre create/update calls.
type NameInput struct {
	Name string `json:"name"`
}

// Review is a user review attached to a book.
type Review struct {
	ID         int    `json:"id,omitempty" yaml:"id,omitempty"`
	BookID     int    `json:"book_id,omitempty" yaml:"book_id,omitempty"`
	UserID     int    `json:"user_id" yaml:"user_id"`
	ReviewText string `json:"review_text" yaml:"review_text"`
	Rating     int    `json:"rating" yaml:"rating"`
}

// BookSummary is returned by the book summary endpoints.
type BookSummary struct {
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Document is an uploaded file. The backend and the offline mirror use
// different field names for the same facts, so both are carried.
type Document struct {
	ID         int    `json:"id" yaml:"id"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Filename   string `json:"filename,omitempty" yaml:"filename,omitempty"`
	Size       string `json:"size,omitempty" yaml:"size,omitempty"`
	UploadDate string `json:"uploadDate,omitempty" yaml:"upload_date,omitempty"`
	UploadedAt string `json:"uploaded_at,omitempty" yaml:"uploaded_at,omitempty"`
	Status     string `json:"status,omitempty" yaml:"status,omitempty"`
}

// DisplayName returns the best available name for the document.
func (d Document) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}

	return d.Filename
}

// DocumentSummary is returned by POST /documents/{id}/summary.
type DocumentSummary struct {
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Text returns the summary, falling back to the message and finally a
// generic confirmation.
func (s DocumentSummary) Text() string {
	switch {
	case s.Summary != "":
		return s.Summary
	case s.Message != "":
		return s.Message
	default:
		return "Summary generated successfully"
	}
}

// Download is a binary document body.
type Download struct {
	ContentType string
	Data        []byte
}

// User is an account managed through the admin endpoints.
type User struct {
	ID       int    `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
	Status   string `json:"status,omitempty" yaml:"status,omitempty"`
}

// UserInput is the body for creating or updating a user.
type UserInput struct {
	Username  string   `json:"username,omitempty"`
	Password  string   `json:"password,omitempty"`
	Email     string   `json:"email,omitempty"`
	RoleNames []string `json:"role_names,omitempty"`
	Status    string   `json:"status,omitempty"`
}

// Role is a named permission set.
type Role struct {
	ID        int    `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	CanRead   bool   `json:"can_read" yaml:"can_read"`
	CanWrite  bool   `json:"can_write" yaml:"can_write"`
	CanDelete bool   `json:"can_delete" yaml:"can_delete"`
	IsAdmin   bool   `json:"is_admin" yaml:"is_admin"`
}

// RoleInput is the body for creating or updating a role.
type RoleInput struct {
	Name      string `json:"name"`
	CanRead   bool   `json:"can_read"`
	CanWrite  bool   `json:"can_write"`
	CanDelete bool   `json:"can_delete"`
	IsAdmin   bool   `json:"is_admin"`
}

// Message is the generic acknowledgement body many endpoints return.
type Message struct {
	Message string `json:"message" yaml:"message"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by POST /auth/login. The backend has
// used both access_token and token for the bearer value.
type LoginResponse struct {
	AccessToken string       `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	Token       string       `json:"token,omitempty" yaml:"token,omitempty"`
	Roles       []string     `json:"roles,omitempty" yaml:"roles,omitempty"`
	User        *UserSummary `json:"user,omitempty" yaml:"user,omitempty"`
	Message     string       `json:"message,omitempty" yaml:"message,omitempty"`
}

// BearerToken returns access_token when set, otherwise token.
func (r LoginResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}

	return r.Token
}

// UserSummary is the minimal user object attached to a login response.
type UserSummary struct {
	Username string `json:"username" yaml:"username"`
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// SearchRequest is the body for POST /rag/search.
type SearchRequest struct {
	Query      string  `json:"query"`
	MaxResults int     `json:"max_results"`
	Threshold  float64 `json:"threshold"`
}

// SearchMetadata locates a search hit inside its source document.
type SearchMetadata struct {
	Page    int    `json:"page,omitempty" yaml:"page,omitempty"`
	Chapter string `json:"chapter,omitempty" yaml:"chapter,omitempty"`
}

// SearchResult is a single retrieval hit.
type SearchResult struct {
	ID       int            `json:"id" yaml:"id"`
	Title    string         `json:"title" yaml:"title"`
	Content  string         `json:"content" yaml:"content"`
	Source   string         `json:"source" yaml:"source"`
	Score    float64        `json:"score" yaml:"score"`
	Metadata SearchMetadata `json:"metadata" yaml:"metadata"`
}

// QuickSearchResponse is returned by the POST /search endpoint.
type QuickSearchResponse struct {
	Query   string         `json:"query,omitempty" yaml:"query,omitempty"`
	Answer  string         `json:"answer,omitempty" yaml:"answer,omitempty"`
	Results []SearchResult `json:"results" yaml:"results"`
}

// GenerateRequest is the body for POST /rag/generate.
type GenerateRequest struct {
	Query   string         `json:"query"`
	Context []SearchResult `json:"context"`
}

// GeneratedAnswer is the RAG answer returned by POST /rag/generate.
type GeneratedAnswer struct {
	Answer     string   `json:"answer" yaml:"answer"`
	Sources    []string `json:"sources" yaml:"sources"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
}

// RAGStats describes the retrieval index.
type RAGStats struct {
	TotalDocuments   int    `json:"total_documents" yaml:"total_documents"`
	IndexedDocuments int    `json:"indexed_documents" yaml:"indexed_documents"`
	TotalEmbeddings  int    `json:"total_embeddings" yaml:"total_embeddings"`
	LastUpdated      string `json:"last_updated" yaml:"last_updated"`
	IndexStatus      string `json:"index_status" yaml:"index_status"`
}

// RebuildJob acknowledges an index rebuild request.
type RebuildJob struct {
	Message       string `json:"message" yaml:"message"`
	JobID         string `json:"job_id" yaml:"job_id"`
	EstimatedTime string `json:"estimated_time,omitempty" yaml:"estimated_time,omitempty"`
}

// JobAck acknowledges an ingestion or imbibing run.
type JobAck struct {
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	JobID   string `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Status  string `json:"status,omitempty" yaml:"status,omitempty"`
}

// JobStatus reports progress of an ingestion or imbibing run.
type JobStatus struct {
	Status             string `json:"status,omitempty" yaml:"status,omitempty"`
	Progress           int    `json:"progress,omitempty" yaml:"progress,omitempty"`
	DocumentsProcessed int    `json:"documents_processed,omitempty" yaml:"documents_processed,omitempty"`
	TotalDocuments     int    `json:"total_documents,omitempty" yaml:"total_documents,omitempty"`
}

// TodayCount is returned by GET /ingestion/today-count.
type TodayCount struct {
	TodayProcessed int `json:"today_processed" yaml:"today_processed"`
}

// IngestionJob is a per-document ingestion row assembled by the client.
type IngestionJob struct {
	DocumentID int    `json:"document_id" yaml:"document_id"`
	Name       string `json:"name" yaml:"name"`
	Status     string `json:"status" yaml:"status"`
	Progress   int    `json:"progress" yaml:"progress"`
	StartedAt  string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
}

// Recommendation is a suggested book.
type Recommendation struct {
	ID     int     `json:"id" yaml:"id"`
	Title  string  `json:"title" yaml:"title"`
	Author string  `json:"author,omitempty" yaml:"author,omitempty"`
	Score  float64 `json:"score,omitempty" yaml:"score,omitempty"`
}
