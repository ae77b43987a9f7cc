package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"DHX/core/auth"
	"DHX/core/ingest"
	"DHX/core/mixer"
	"DHX/core/resolver"
	"DHX/logger"
	"DHX/model"
	"DHX/repository"
	"DHX/storage"

	"github.com/gorilla/mux"
)

const maxUploadMemory = 32 << 20 // 32MB

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// APIHandler 混音控制接口
type APIHandler struct {
	mixer   *mixer.Coordinator
	ingest  *ingest.Service
	store   storage.Store
	library repository.AnalysisRepository // 未配置数据库时为 nil
	secret  string
}

// NewAPIHandler 创建接口处理器
func NewAPIHandler(m *mixer.Coordinator, in *ingest.Service, store storage.Store, library repository.AnalysisRepository, secret string) *APIHandler {
	return &APIHandler{mixer: m, ingest: in, store: store, library: library, secret: secret}
}

// ========== 工具函数 ==========

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor 错误到 HTTP 状态码的映射
func statusFor(err error) int {
	var re *resolver.ResolutionError
	switch {
	case errors.As(err, &re):
		return http.StatusBadGateway
	case errors.Is(err, errBadRequest),
		errors.Is(err, mixer.ErrInvalidDeck),
		errors.Is(err, mixer.ErrUnsupportedDrop),
		errors.Is(err, ingest.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, mixer.ErrUnknownTrack),
		errors.Is(err, mixer.ErrNoPendingTrack),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mixer.ErrRequestCancelled),
		errors.Is(err, mixer.ErrTrackOnDeck):
		return http.StatusConflict
	case errors.Is(err, mixer.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", logger.ErrorField(err))
	}
	writeErrorMessage(w, status, err.Error())
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func deckParam(r *http.Request) (model.DeckPosition, error) {
	pos := model.DeckPosition(mux.Vars(r)["pos"])
	if !pos.Valid() {
		return model.DeckNone, mixer.ErrInvalidDeck
	}
	return pos, nil
}

// respondState 返回操作后的最新快照
func (h *APIHandler) respondState(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := h.mixer.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ========== 状态 ==========

// StateHandler 当前会话快照
func (h *APIHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, nil)
}

// ========== 上传 ==========

// UploadResponse 上传结果
type UploadResponse struct {
	Tracks  []model.Track `json:"tracks"`
	Skipped []string      `json:"skipped,omitempty"`
}

// UploadHandler 上传 MP3 并装载到指定唱盘
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	pos := model.DeckPosition(r.URL.Query().Get("deck"))
	if pos != model.DeckNone && !pos.Valid() {
		writeError(w, mixer.ErrInvalidDeck)
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, badRequest("failed to parse multipart form: %v", err))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, badRequest("missing 'files' in form"))
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			writeError(w, badRequest("failed to read %s: %v", fh.Filename, err))
			return
		}
		files = append(files, ingest.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	tracks, ingestErr := h.ingest.Ingest(r.Context(), files)
	resp := UploadResponse{Tracks: tracks}
	if ingestErr != nil {
		resp.Skipped = splitJoined(ingestErr)
	}
	if len(tracks) == 0 {
		if ingestErr == nil {
			ingestErr = badRequest("no files accepted")
		}
		writeError(w, ingestErr)
		return
	}
	if err := h.mixer.LoadFiles(pos, tracks); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// splitJoined 展开 errors.Join 的结果
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// ========== 队列 ==========

type trackRequest struct {
	TrackID string `json:"trackId"`
}

type indexRequest struct {
	Index *int `json:"index"`
}

// EnqueueHandler 把曲库中的曲目加入队列
func (h *APIHandler) EnqueueHandler(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TrackID == "" {
		writeError(w, badRequest("trackId is required"))
		return
	}
	h.respondState(w, h.mixer.EnqueueID(req.TrackID))
}

// RemoveFromQueueHandler 从队列删除
func (h *APIHandler) RemoveFromQueueHandler(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, h.mixer.Remove(mux.Vars(r)["id"]))
}

// MoveInQueueHandler 调整队列位置
func (h *APIHandler) MoveInQueueHandler(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Index == nil {
		writeError(w, badRequest("index is required"))
		return
	}
	h.respondState(w, h.mixer.Move(mux.Vars(r)["id"], *req.Index))
}

// FillDecksHandler 用队列填充空唱盘
func (h *APIHandler) FillDecksHandler(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, h.mixer.FillDecks())
}

// ========== 唱盘 ==========

// DeckActionHandler play/pause/toggle/active
func (h *APIHandler) DeckActionHandler(action func(*mixer.Coordinator, model.DeckPosition) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pos, err := deckParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		h.respondState(w, action(h.mixer, pos))
	}
}

// ReturnToQueueHandler 把唱盘上的曲目放回队列
func (h *APIHandler) ReturnToQueueHandler(w http.ResponseWriter, r *http.Request) {
	pos, err := deckParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	// 请求体可选
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, badRequest("invalid JSON body: %v", err))
		return
	}
	h.respondState(w, h.mixer.ReturnToQueue(pos, req.Index))
}

// LoadOnDeckHandler 直接装载曲目
func (h *APIHandler) LoadOnDeckHandler(w http.ResponseWriter, r *http.Request) {
	pos, err := deckParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.respondState(w, h.mixer.LoadOnDeck(pos, req.TrackID))
}

// ========== 混音 ==========

type valueRequest struct {
	Value *float64 `json:"value"`
}

func (h *APIHandler) valueHandler(set func(*mixer.Coordinator, float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req valueRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.Value == nil {
			writeError(w, badRequest("value is required"))
			return
		}
		h.respondState(w, set(h.mixer, *req.Value))
	}
}

// NextTrackHandler 下一首
func (h *APIHandler) NextTrackHandler(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, h.mixer.NextTrack())
}

// PrevTrackHandler 上一首
func (h *APIHandler) PrevTrackHandler(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, h.mixer.PrevTrack())
}

// ========== 拖放 ==========

type dropEndpoint struct {
	Kind  string             `json:"kind"`
	ID    string             `json:"id,omitempty"`
	Deck  model.DeckPosition `json:"deck,omitempty"`
	Index *int               `json:"index,omitempty"`
}

type dropRequest struct {
	From dropEndpoint `json:"from"`
	To   dropEndpoint `json:"to"`
}

func (d dropRequest) parse() (mixer.DragSource, mixer.DropTarget, error) {
	var (
		src mixer.DragSource
		dst mixer.DropTarget
	)
	switch d.From.Kind {
	case "queue":
		src = mixer.FromQueue{ID: d.From.ID}
	case "deck":
		src = mixer.FromDeck{Deck: d.From.Deck}
	case "history":
		src = mixer.FromHistory{ID: d.From.ID}
	default:
		return nil, nil, badRequest("unknown drag source %q", d.From.Kind)
	}
	switch d.To.Kind {
	case "queue":
		dst = mixer.ToQueue{Index: d.To.Index}
	case "deck":
		dst = mixer.ToDeck{Deck: d.To.Deck}
	default:
		return nil, nil, badRequest("unknown drop target %q", d.To.Kind)
	}
	return src, dst, nil
}

// DropHandler 拖放
func (h *APIHandler) DropHandler(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	src, dst, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}
	h.respondState(w, h.mixer.Drop(src, dst))
}

// ========== 点歌 ==========

type requestTrackRequest struct {
	Query string `json:"query"`
}

// RequestTrackHandler 解析点歌请求，结果进入待确认
func (h *APIHandler) RequestTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req requestTrackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Query == "" {
		writeError(w, badRequest("query is required"))
		return
	}
	logger.Info("track requested",
		logger.String("query", req.Query),
		logger.String("operator", operatorFrom(r.Context())))
	t, err := h.mixer.RequestTrack(r.Context(), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CancelRequestHandler 取消正在进行的点歌
func (h *APIHandler) CancelRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, h.mixer.CancelRequest())
}

// ConfirmPendingHandler 确认待定曲目
func (h *APIHandler) ConfirmPendingHandler(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, h.mixer.ConfirmPending())
}

// CancelPendingHandler 放弃待定曲目
func (h *APIHandler) CancelPendingHandler(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, h.mixer.CancelPending())
}

// ========== 曲库 ==========

// LibraryResponse 曲库
type LibraryResponse struct {
	Session  []model.Track          `json:"session"`
	Analysed []*model.TrackAnalysis `json:"analysed,omitempty"`
}

// LibraryHandler 本次会话曲库和已持久化的分析记录
func (h *APIHandler) LibraryHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.mixer.Library()
	if err != nil {
		writeError(w, err)
		return
	}
	resp := LibraryResponse{Session: session}
	if h.library != nil {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		recs, err := h.library.List(r.Context(), limit)
		if err != nil {
			writeError(w, fmt.Errorf("failed to list analyses: %w", err))
			return
		}
		resp.Analysed = recs
	}
	writeJSON(w, http.StatusOK, resp)
}

// ========== 认证 ==========

type tokenRequest struct {
	Name string `json:"name"`
}

// TokenHandler 签发控制令牌
func (h *APIHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		writeErrorMessage(w, http.StatusNotFound, "authentication is disabled")
		return
	}
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, badRequest("name is required"))
		return
	}
	token, err := auth.GenerateToken(h.secret, req.Name, auth.DefaultTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ========== 媒体 ==========

// MediaHandler 从存储读取对象
func (h *APIHandler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	rc, obj, err := h.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeErrorMessage(w, http.StatusNotFound, "file not found")
			return
		}
		writeError(w, err)
		return
	}
	defer rc.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if _, err := io.Copy(w, rc); err != nil {
		logger.Warn("error serving media", logger.String("key", key), logger.ErrorField(err))
	}
}

// HealthHandler 健康检查
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.mixer.Done():
		writeErrorMessage(w, http.StatusServiceUnavailable, "mixer stopped")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
