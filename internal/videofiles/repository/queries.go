package repository

const findVideoByIDQuery = `
SELECT id,
       owner_id,
       raw_video_id,
       processed_video_id,
       title,
       status,
       uploaded_at,
       processed_at,
       original_url,
       processed_url,
       votes
FROM videos
WHERE id = $1`

const updateVideoQuery = `
UPDATE videos
SET status = $2,
    processed_video_id = $3,
    processed_url = $4,
    processed_at = $5
WHERE id = $1`
