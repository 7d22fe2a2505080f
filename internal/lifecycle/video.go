package lifecycle

type VideoStatus string

const (
	VideoAwaitingUpload VideoStatus = "awaiting_upload"
	VideoAwaitingConfig VideoStatus = "awaiting_config"
	VideoDownloading    VideoStatus = "downloading"
	VideoTranscribing   VideoStatus = "transcribing"
	VideoAnalyzing      VideoStatus = "analyzing"
	VideoCompleted      VideoStatus = "completed"
	VideoFailed         VideoStatus = "failed"
)

type VideoEvent string

const (
	VideoUploadCompleted VideoEvent = "upload_completed"
	VideoConfigured      VideoEvent = "configured"
	VideoDownloaded      VideoEvent = "downloaded"
	VideoTranscribed     VideoEvent = "transcribed"
	VideoAnalyzed        VideoEvent = "analyzed"
	VideoFailedEvent     VideoEvent = "failed"
)

var Videos = newMachine("video",
	[]VideoStatus{
		VideoAwaitingUpload,
		VideoAwaitingConfig,
		VideoDownloading,
		VideoTranscribing,
		VideoAnalyzing,
		VideoCompleted,
		VideoFailed,
	},
	[]VideoStatus{VideoCompleted, VideoFailed},
	VideoFailedEvent, VideoFailed,
	[]edge[VideoStatus, VideoEvent]{
		{VideoAwaitingUpload, VideoUploadCompleted, VideoAwaitingConfig},
		{VideoAwaitingConfig, VideoConfigured, VideoDownloading},
		{VideoDownloading, VideoConfigured, VideoDownloading},
		{VideoDownloading, VideoDownloaded, VideoTranscribing},
		{VideoTranscribing, VideoTranscribed, VideoAnalyzing},
		{VideoAnalyzing, VideoAnalyzed, VideoCompleted},
	},
)

// SourceType tells where a video's bytes come from.
type SourceType string

const (
	SourceUpload  SourceType = "upload"
	SourceYouTube SourceType = "youtube"
	SourceURL     SourceType = "url"
)

// InitialVideoStatus is the status a freshly created video starts in.
func InitialVideoStatus(src SourceType) VideoStatus {
	if src == SourceUpload {
		return VideoAwaitingUpload
	}
	return VideoAwaitingConfig
}
