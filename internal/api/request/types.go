package request

// CredentialsRequest is the request body for signup and signin
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignoutRequest is the request body for signing out. The bearer header
// is used when Token is empty.
type SignoutRequest struct {
	Token string `json:"token"`
}

// GameRequest is the request body for creating or updating a game
type GameRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ScoreRequest is the request body for submitting a score
type ScoreRequest struct {
	Score *float64 `json:"score"`
}

// BlockRequest is the request body for blocking a principal
type BlockRequest struct {
	Reason string `json:"reason"`
}

// ArchiveField is the multipart field carrying an uploaded build
const ArchiveField = "zipfile"
