package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/inventoryapp/inventoryapp/internal/common/logger"
	"github.com/inventoryapp/inventoryapp/internal/form"
	"github.com/inventoryapp/inventoryapp/internal/inventory"
	"github.com/inventoryapp/inventoryapp/internal/user"
	"github.com/inventoryapp/inventoryapp/internal/view"
)

// maxImageUploadBytes 单次 multipart 上传的内存解析上限。
const maxImageUploadBytes = 32 << 20

// InventoryService 库存域端口（inventory.Service 实现）。
type InventoryService interface {
	FetchInventory(ctx context.Context) []inventory.Vehicle
	AddVehicle(ctx context.Context, in inventory.VehicleInput) (*inventory.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, in inventory.VehicleInput, imageURLs inventory.ImageURLs) (*inventory.Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error
	UploadVehicleImage(ctx context.Context, vehicleID, filename string, r io.Reader, size int64, contentType string) (string, error)
	DeleteVehicleImage(ctx context.Context, vehicleID, imageURL string) error
}

// UserService 账号域端口（user.Service 实现）。
type UserService interface {
	Login(ctx context.Context, email, password string) (string, time.Time, *user.User, error)
	Session(ctx context.Context, token string) (*user.SessionInfo, error)
}

// Handler 库存服务的 HTTP 处理器集合。
// 列表由 view.View 的内存缓存提供，增删改成功后按 id 原地同步，
// 不靠整表重新拉取；表单（multipart）提交走 form.Workflow。
type Handler struct {
	inventory InventoryService
	users     UserService
	workflow  *form.Workflow
	view      *view.View
	log       logger.Logger
}

func NewHandler(inv InventoryService, users UserService, log logger.Logger) *Handler {
	return &Handler{
		inventory: inv,
		users:     users,
		workflow:  form.NewWorkflow(inv, log),
		view:      view.NewView(inv, log),
		log:       log,
	}
}

// RefreshInventory 整表拉取并重建内存列表；启动时调用一次。
func (h *Handler) RefreshInventory(ctx context.Context) {
	h.view.Refresh(ctx)
}

// response 统一 JSON 信封。
type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Success: false, Message: msg})
}

// statusForError 把领域错误的原因码映射成 HTTP 状态码。
func statusForError(err error) int {
	switch inventory.ReasonOf(err) {
	case inventory.ReasonValidation:
		return http.StatusBadRequest
	case inventory.ReasonNotFound:
		return http.StatusNotFound
	default:
		// store_unavailable / object_storage 都是上游依赖故障。
		return http.StatusBadGateway
	}
}

// submitStatus 表单提交错误的状态码：
// 重入提交 409；网关错误按原因码；其余（校验/解析）都是 400。
func submitStatus(err error) int {
	if errors.Is(err, form.ErrSubmitInFlight) {
		return http.StatusConflict
	}
	var oe *inventory.OpError
	if errors.As(err, &oe) {
		return statusForError(err)
	}
	return http.StatusBadRequest
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userInfo  `json:"user"`
}

type userInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Nickname string   `json:"nickname,omitempty"`
	Roles    []string `json:"roles"`
}

// Login POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, u, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		if h.log != nil {
			h.log.Errorf("login failed: %v", err)
		}
		writeError(w, http.StatusBadGateway, "login temporarily unavailable")
		return
	}

	// 页面请求走 cookie，API 客户端用返回的 token。
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, response{Success: true, Data: loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User: userInfo{
			ID:       u.ID,
			Email:    u.Email,
			Nickname: u.Nickname,
			Roles:    u.RolesSlice(),
		},
	}})
}

// Session GET /api/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	info, err := h.users.Session(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "session expired or invalid")
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: info})
}

// requestToken 从 Authorization 头或 session cookie 取访问令牌。
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie("session"); err == nil {
		return c.Value
	}
	return ""
}

type inventoryResponse struct {
	Vehicles []inventory.Vehicle `json:"vehicles"`
	Stats    view.Stats          `json:"stats"`
}

// ListVehicles GET /api/vehicles
// 直接读内存缓存（启动时整表加载一次，之后靠增删改原地同步）。
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: inventoryResponse{
		Vehicles: h.view.Vehicles(),
		Stats:    h.view.Snapshot(),
	}})
}

type vehicleRequest struct {
	VIN          string              `json:"vin"`
	Make         string              `json:"make"`
	Model        string              `json:"model"`
	Year         int                 `json:"year"`
	Color        string              `json:"color"`
	Mileage      *int                `json:"mileage"`
	SellingPrice *float64            `json:"selling_price"`
	Status       inventory.Status    `json:"status"`
	ImageURLs    inventory.ImageURLs `json:"image_urls"`
}

func (req vehicleRequest) input() inventory.VehicleInput {
	return inventory.VehicleInput{
		VIN:          req.VIN,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Color:        req.Color,
		Mileage:      req.Mileage,
		SellingPrice: req.SellingPrice,
		Status:       req.Status,
	}
}

// isMultipart 请求体是否为 multipart/form-data（仪表盘表单带文件提交）。
func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// draftFromForm 把 multipart 表单解析为草稿：
// 文本字段原样进草稿（数值提交时才解析），文件进 PendingFiles。
func draftFromForm(r *http.Request) (*form.Draft, error) {
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		return nil, err
	}

	d := form.NewAddDraft()
	d.VIN = r.FormValue("vin")
	d.Make = r.FormValue("make")
	d.Model = r.FormValue("model")
	d.Year = r.FormValue("year")
	d.Color = r.FormValue("color")
	d.Mileage = r.FormValue("mileage")
	d.SellingPrice = r.FormValue("selling_price")
	if s := r.FormValue("status"); s != "" {
		d.Status = inventory.Status(s)
	}
	if s := r.FormValue("image_urls"); s != "" {
		if err := json.Unmarshal([]byte(s), &d.ImageURLs); err != nil {
			return nil, errors.New("invalid image_urls field")
		}
	}

	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		d.AttachFile(form.LocalFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return d, nil
}

type submitResponse struct {
	Vehicle       *inventory.Vehicle `json:"vehicle"`
	FailedUploads []string           `json:"failed_uploads,omitempty"`
}

// AddVehicle POST /api/vehicles
// JSON 体：纯字段插入；multipart 体：字段 + 本地图片走表单工作流
// （一次进行中的提交会拒绝重入，返回 409）。
func (h *Handler) AddVehicle(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		d, err := draftFromForm(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		res, err := h.workflow.SubmitAdd(r.Context(), d)
		if err != nil {
			writeError(w, submitStatus(err), err.Error())
			return
		}
		h.view.VehicleAdded(res.Vehicle)
		writeJSON(w, http.StatusCreated, response{Success: true, Data: submitResponse{
			Vehicle:       res.Vehicle,
			FailedUploads: res.FailedUploads,
		}})
		return
	}

	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v, err := h.inventory.AddVehicle(r.Context(), req.input())
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	h.view.VehicleAdded(v)
	writeJSON(w, http.StatusCreated, response{Success: true, Data: v})
}

// UpdateVehicle PUT /api/vehicles/{id}
// JSON 体：整体字段更新；multipart 体：表单工作流（更新 + 上传新图 +
// previous ++ uploaded 合并）。
func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if isMultipart(r) {
		d, err := draftFromForm(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		d.VehicleID = id
		res, err := h.workflow.SubmitEdit(r.Context(), d)
		if err != nil {
			writeError(w, submitStatus(err), err.Error())
			return
		}
		h.view.VehicleUpdated(res.Vehicle)
		writeJSON(w, http.StatusOK, response{Success: true, Data: submitResponse{
			Vehicle:       res.Vehicle,
			FailedUploads: res.FailedUploads,
		}})
		return
	}

	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageURLs == nil {
		req.ImageURLs = inventory.ImageURLs{}
	}

	v, err := h.inventory.UpdateVehicle(r.Context(), id, req.input(), req.ImageURLs)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	h.view.VehicleUpdated(v)
	writeJSON(w, http.StatusOK, response{Success: true, Data: v})
}

// DeleteVehicle DELETE /api/vehicles/{id}
// 走视图的删除流程：远端成功才把该行从缓存移除。
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.view.Delete(r.Context(), id, nil); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

type uploadImageResponse struct {
	URL string `json:"url"`
}

// UploadImage POST /api/vehicles/{id}/images
// multipart/form-data，文件字段名 image。
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	url, err := h.inventory.UploadVehicleImage(
		r.Context(), id, header.Filename, file, header.Size,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	h.view.ImageURLAdded(id, url)
	writeJSON(w, http.StatusCreated, response{Success: true, Data: uploadImageResponse{URL: url}})
}

type deleteImageRequest struct {
	URL string `json:"url"`
}

// DeleteImage DELETE /api/vehicles/{id}/images
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req deleteImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.inventory.DeleteVehicleImage(r.Context(), id, req.URL); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	h.view.ImageURLRemoved(id, req.URL)
	writeJSON(w, http.StatusOK, response{Success: true})
}
