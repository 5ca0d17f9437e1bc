package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/gofiber/fiber/v2"

	"contextd/internal/convert"
	cerrors "contextd/internal/errors"
	"contextd/internal/model"
)

// AppendMessage handles POST /api/v1/sessions/:id/messages. The message is
// persisted as pending, then a processing trigger is published. A full queue
// does not fail the request: the message stays pending and is picked up by
// the next trigger for its session.
func (h *Handlers) AppendMessage(c *fiber.Ctx) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var req AppendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if err := model.ValidateMessage(req.Role, req.Parts); err != nil {
		return storeError(c, err)
	}

	msg, err := h.store.AppendMessage(c.Context(), sessionID, req.Role, req.Parts)
	if err != nil {
		return storeError(c, err)
	}

	resp := MessageAccepted{Message: msg}
	trig, err := h.queue.Publish(c.Context(), sessionID)
	switch {
	case err == nil:
		resp.Queued = true
		resp.Trigger = trig.ID
	case errors.Is(err, cerrors.ErrQueueFull), errors.Is(err, cerrors.ErrQueueClosed):
		h.logger.Warn().Err(err).
			Str("session_id", sessionID.String()).
			Str("message_id", msg.ID.String()).
			Msg("message persisted but trigger not published")
	default:
		return storeError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// ListMessages handles GET /api/v1/sessions/:id/messages. The optional
// status query filters by lifecycle state; format re-encodes the list for a
// client SDK (openai, langchain) instead of the stored shape.
func (h *Handlers) ListMessages(c *fiber.Ctx) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	format, err := convert.ParseFormat(c.Query("format"))
	if err != nil {
		return storeError(c, err)
	}

	status := model.TaskStatus(c.Query("status"))
	msgs, err := h.store.ListMessages(c.Context(), sessionID, status)
	if err != nil {
		return storeError(c, err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	if format == convert.FormatNone {
		return c.JSON(MessageListResponse{Messages: msgs, Total: len(msgs)})
	}

	items, err := convert.Messages(msgs, format, h.assetURLs(msgs))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(ExportedMessagesResponse{
		Format: string(format),
		Items:  items,
		Total:  len(msgs),
	})
}

// assetURLs signs download URLs for every file part in msgs, keyed by content
// hash. Missing blob config or a signing failure leaves the entry out; the
// converter degrades those parts rather than failing the list.
func (h *Handlers) assetURLs(msgs []model.Message) map[string]string {
	if h.blobs == nil {
		return nil
	}
	urls := make(map[string]string)
	for _, m := range msgs {
		for _, p := range m.Parts {
			if p.Asset == nil || p.Asset.SHA256 == "" {
				continue
			}
			if _, ok := urls[p.Asset.SHA256]; ok {
				continue
			}
			url, err := h.blobs.SignedDownloadURL(p.Asset.SHA256)
			if err != nil {
				h.logger.Warn().Err(err).Str("sha256", p.Asset.SHA256).Msg("skipping unsignable asset")
				continue
			}
			urls[p.Asset.SHA256] = url
		}
	}
	return urls
}

// GetMessage handles GET /api/v1/messages/:id.
func (h *Handlers) GetMessage(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	msg, err := h.store.GetMessage(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(msg)
}

// UploadAsset handles POST /api/v1/assets. The raw body is stored under its
// SHA-256, so re-uploading the same content is a no-op on the bucket. Message
// file parts reference the returned hash.
func (h *Handlers) UploadAsset(c *fiber.Ctx) error {
	if h.blobs == nil {
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"blob_disabled", "Service Unavailable",
			"Blob storage is not configured")
	}

	body := c.Body()
	if len(body) == 0 {
		return problemResponse(c, fiber.StatusBadRequest,
			"empty_body", "Bad Request",
			"Upload body must not be empty")
	}

	mime := c.Get(fiber.HeaderContentType)
	if mime == "" {
		mime = "application/octet-stream"
	}

	sum := sha256.Sum256(body)
	sha := hex.EncodeToString(sum[:])
	if err := h.blobs.Upload(c.Context(), sha, mime, bytes.NewReader(body)); err != nil {
		h.logger.Error().Err(err).Str("sha256", sha).Msg("asset upload failed")
		return problemResponse(c, fiber.StatusBadGateway,
			"upload_failed", "Bad Gateway",
			"Failed to store asset")
	}

	return c.Status(fiber.StatusCreated).JSON(AssetUploaded{
		SHA256: sha,
		MIME:   mime,
		Size:   len(body),
	})
}

// SignedAssetURL handles GET /api/v1/assets/:sha256/url. Returns a signed
// download URL for a file part's content hash.
func (h *Handlers) SignedAssetURL(c *fiber.Ctx) error {
	if h.blobs == nil {
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"blob_disabled", "Service Unavailable",
			"Blob storage is not configured")
	}

	sha := c.Params("sha256")
	asset, err := h.store.FindAsset(c.Context(), sha)
	if err != nil {
		return storeError(c, err)
	}

	url, err := h.blobs.SignedDownloadURL(asset.SHA256)
	if err != nil {
		h.logger.Error().Err(err).Str("sha256", sha).Msg("failed to sign asset url")
		return problemResponse(c, fiber.StatusInternalServerError,
			"signing_failed", "Internal Server Error",
			"Failed to sign download URL")
	}

	return c.JSON(SignedURLResponse{
		SHA256: asset.SHA256,
		MIME:   asset.MIME,
		URL:    url,
	})
}
