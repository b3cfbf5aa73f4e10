package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"weedcam/internal/dto"
	"weedcam/internal/logger"
	"weedcam/internal/service/camera"
)

// FrameBoundary separates the JPEG parts of a video feed.
const FrameBoundary = "frame"

// FrameStreamer produces annotated frames for a camera tag.
type FrameStreamer interface {
	Stream(ctx context.Context, tag string, emit camera.EmitFunc) (int, error)
}

// VideoFeedHandler handles GET /video_feed/{camera_type}: an endless
// multipart/x-mixed-replace stream of annotated JPEG frames. The stream ends
// when the camera stops delivering frames or the client goes away; a camera
// that cannot be opened produces an empty stream.
func VideoFeedHandler(streamer FrameStreamer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag := r.PathValue("camera_type")

		mw := multipart.NewWriter(w)
		if err := mw.SetBoundary(FrameBoundary); err != nil {
			logger.Error("Invalid frame boundary: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+FrameBoundary)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		rc := http.NewResponseController(w)
		rc.Flush()

		frames, err := streamer.Stream(r.Context(), tag, func(frame []byte, _ []dto.Detection) error {
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"image/jpeg"},
				"Content-Length": {strconv.Itoa(len(frame))},
			})
			if err != nil {
				return err
			}
			if _, err := part.Write(frame); err != nil {
				return err
			}
			return rc.Flush()
		})
		if err != nil {
			logger.Warning("Video feed %s ended after %d frames: %v", tag, frames, err)
		}

		mw.Close()
	}
}
