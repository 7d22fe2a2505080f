package repository

const (
	videoColumns = `video_id, user_id, title, status, source_type, source_url, file_name, file_size, content_type,
					upload_id, upload_key, total_parts, duration_secs, upload_expires_at, storage_key, storage_url,
					config, error_message, created_at, updated_at`

	createVideoQuery = `INSERT INTO videos (video_id, user_id, title, status, source_type, source_url, file_name, file_size,
					content_type, upload_id, upload_key, total_parts, upload_expires_at, storage_key, storage_url, config)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING ` + videoColumns
	getVideoByIDQuery            = `SELECT ` + videoColumns + ` FROM videos WHERE video_id = $1`
	getVideoByUploadSessionQuery = `SELECT ` + videoColumns + ` FROM videos WHERE upload_id = $1 AND upload_key = $2`
	getVideosByUserIDQuery       = `SELECT ` + videoColumns + ` FROM videos
					WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`
	getTotalVideosByUserIDQuery = `SELECT COUNT(video_id) FROM videos WHERE user_id = $1`
	transitionVideoQuery        = `UPDATE videos
									SET status = $3,
									    storage_key = COALESCE($4, storage_key),
									    storage_url = COALESCE($5, storage_url),
									    config = COALESCE($6, config),
									    error_message = COALESCE($7, error_message),
									    updated_at = NOW()
									WHERE video_id = $1 AND status = $2
									RETURNING ` + videoColumns
	setDurationQuery         = `UPDATE videos SET duration_secs = $2, updated_at = NOW() WHERE video_id = $1`
	deleteVideoIfStatusQuery = `DELETE FROM videos WHERE video_id = $1 AND status = $2`
	deleteVideoQuery         = `DELETE FROM videos WHERE video_id = $1`
	listExpiredUploadsQuery  = `SELECT ` + videoColumns + ` FROM videos
					WHERE status = $1 AND upload_expires_at < $2 ORDER BY upload_expires_at LIMIT $3`
	videoExistsQuery = `SELECT EXISTS(SELECT 1 FROM videos WHERE video_id = $1)`

	insertDetectedClipQuery = `INSERT INTO clips (clip_id, video_id, user_id, title, status, start_sec, end_sec, score)
					VALUES (:clip_id, :video_id, :user_id, :title, :status, :start_sec, :end_sec, :score)`
)
