// SPDX-License-Identifier: EPL-2.0

package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ik5/mixpreview/combiner"
	"github.com/ik5/mixpreview/preview"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "mixpreview",
		"timestamp": time.Now().Unix(),
	})
}

// uploadTracks replaces the current batch with the multipart "files".
func (s *Server) uploadTracks(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	form, err := c.MultipartForm()
	if err != nil {
		s.fail(c, fmt.Errorf("parse upload: %w", err))
		return
	}

	uploads := make([]preview.Upload, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		up, err := readUpload(fh)
		if err != nil {
			s.fail(c, err)
			return
		}
		uploads = append(uploads, up)
	}

	if err := s.orch.Select(c.Request.Context(), uploads); err != nil {
		s.fail(c, err)
		return
	}

	s.hub.Broadcast(Message{Type: "tracks"})

	tracks := s.orch.Tracks()
	c.JSON(http.StatusCreated, gin.H{
		"tracks": tracks,
		"count":  len(tracks),
	})
}

func readUpload(fh *multipart.FileHeader) (preview.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return preview.Upload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return preview.Upload{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	return preview.Upload{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Data:     data,
	}, nil
}

func (s *Server) listTracks(c *gin.Context) {
	tracks := s.orch.Tracks()
	c.JSON(http.StatusOK, gin.H{
		"tracks": tracks,
		"count":  len(tracks),
	})
}

func (s *Server) resetTracks(c *gin.Context) {
	s.orch.Reset()
	s.hub.Broadcast(Message{Type: "reset"})
	c.Status(http.StatusNoContent)
}

type volumeRequest struct {
	Volume *int `json:"volume" binding:"required"`
}

// setVolume answers as soon as the track is updated; the mix follows over
// the websocket.
func (s *Server) setVolume(c *gin.Context) {
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	id := c.Param("id")
	if err := s.orch.SetVolume(c.Request.Context(), id, *req.Volume); err != nil {
		s.fail(c, err)
		return
	}

	track, _ := s.orch.Track(id)
	c.JSON(http.StatusAccepted, gin.H{"track": track})
}

func (s *Server) liveState(c *gin.Context) {
	state := gin.H{
		"state":    s.sched.State().String(),
		"playing":  !s.live.Paused(),
		"position": s.live.Position().Seconds(),
		"duration": s.live.Duration().Seconds(),
		"swap":     s.sched.Stats(),
		"store":    s.sched.Store().Stats(),
		"mix":      s.orch.Stats(),
	}
	if res := s.sched.Live(); res != nil {
		state["ref"] = res.Ref()
		state["format"] = res.Format().String()
		state["size"] = res.Size()
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) play(c *gin.Context) {
	if err := s.live.Play(); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "cannot start playback",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"playing": true})
}

func (s *Server) pause(c *gin.Context) {
	s.live.Pause()
	c.JSON(http.StatusOK, gin.H{"playing": false})
}

// media serves the bytes behind a resource reference such as
// "blob:0b0c...". Released resources are gone.
func (s *Server) media(c *gin.Context) {
	res, ok := s.sched.Store().Lookup(c.Param("ref"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		return
	}

	data := res.Bytes()
	if data == nil {
		c.JSON(http.StatusGone, gin.H{"error": "resource released"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, res.Format().ContentType(), data)
}

func (s *Server) serveWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(s.hub, conn)
	if err := s.hub.Register(c.Request.Context(), client); err != nil {
		_ = conn.Close()
		return
	}
	client.serve(c.Request.Context())
}

// fail maps pipeline errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, preview.ErrUnknownTrack):
		status = http.StatusNotFound
	case errors.Is(err, preview.ErrNoUploads),
		errors.Is(err, preview.ErrEmptyUpload),
		errors.Is(err, preview.ErrInvalidVolume),
		errors.Is(err, combiner.ErrInvalidVolumes),
		errors.Is(err, http.ErrNotMultipart),
		errors.Is(err, http.ErrMissingBoundary):
		status = http.StatusBadRequest
	case errors.Is(err, combiner.ErrEngineInit):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, preview.ErrSuperseded):
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
