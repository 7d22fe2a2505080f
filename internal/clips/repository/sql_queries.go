package repository

const (
	clipColumns = `clip_id, video_id, user_id, title, status, start_sec, end_sec, score, storage_key,
					export_count, error_message, created_at, updated_at`
	operationColumns = `clip_id, operation, status, job_id, result_key, error_message, updated_at`

	getClipByIDQuery       = `SELECT ` + clipColumns + ` FROM clips WHERE clip_id = $1`
	getClipsByVideoIDQuery = `SELECT ` + clipColumns + ` FROM clips WHERE video_id = $1 ORDER BY start_sec`
	transitionClipQuery    = `UPDATE clips
								SET status = $3,
								    storage_key = COALESCE($4, storage_key),
								    error_message = COALESCE($5, error_message),
								    updated_at = NOW()
								WHERE clip_id = $1 AND status = $2
								RETURNING ` + clipColumns
	recordExportQuery = `UPDATE clips
								SET status = $3, export_count = export_count + 1, updated_at = NOW()
								WHERE clip_id = $1 AND status = $2
								RETURNING ` + clipColumns
	clipExistsQuery = `SELECT EXISTS(SELECT 1 FROM clips WHERE clip_id = $1)`

	getOperationQuery   = `SELECT ` + operationColumns + ` FROM clip_operations WHERE clip_id = $1 AND operation = $2`
	listOperationsQuery = `SELECT ` + operationColumns + ` FROM clip_operations WHERE clip_id = $1 ORDER BY operation`
	// A missing row counts as not_started, so the insert branch only fires for that status.
	transitionOperationQuery = `INSERT INTO clip_operations (clip_id, operation, status, job_id, result_key, error_message)
								VALUES ($1, $2, $4, $5, $6, $7)
								ON CONFLICT (clip_id, operation) DO UPDATE
								SET status = EXCLUDED.status,
								    job_id = COALESCE(EXCLUDED.job_id, clip_operations.job_id),
								    result_key = COALESCE(EXCLUDED.result_key, clip_operations.result_key),
								    error_message = EXCLUDED.error_message,
								    updated_at = NOW()
								WHERE clip_operations.status = $3
								RETURNING ` + operationColumns
	setOperationJobQuery = `UPDATE clip_operations SET job_id = $3, updated_at = NOW() WHERE clip_id = $1 AND operation = $2`
)
