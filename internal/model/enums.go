package model

// Source types
type SourceType string

const (
	SourceVideo SourceType = "video"
	SourcePhoto SourceType = "photo"
	SourceVoice SourceType = "voice"
	SourceLink  SourceType = "link"
	SourcePaste SourceType = "paste"
)

var ValidSourceTypes = []SourceType{
	SourceVideo, SourcePhoto, SourceVoice, SourceLink, SourcePaste,
}

// Video platforms with a stable (platform, videoID) identity
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformUnknown   Platform = "unknown"
)

// Job status
type JobStatus string

const (
	JobStatusPending             JobStatus = "pending"
	JobStatusDownloading         JobStatus = "downloading"
	JobStatusProcessing          JobStatus = "processing"
	JobStatusNeedsClientDownload JobStatus = "needs_client_download"
	JobStatusNormalizing         JobStatus = "normalizing"
	JobStatusSaving              JobStatus = "saving"
	JobStatusCompleted           JobStatus = "completed"
	JobStatusNotARecipe          JobStatus = "not_a_recipe"
	JobStatusFailed              JobStatus = "failed"
	JobStatusCancelled           JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusNotARecipe, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Difficulty levels
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Language
type Language string

const (
	LanguageEN Language = "en"
	LanguageDE Language = "de"
	LanguageFR Language = "fr"
	LanguageES Language = "es"
	LanguageTR Language = "tr"
)

// DefaultCategorySlugs is the fallback vocabulary when the core service
// cannot be reached for the live category list.
var DefaultCategorySlugs = []string{
	"breakfast", "lunch", "dinner", "dessert", "snack",
	"baking", "drinks", "salad", "soup", "other",
}
