package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inventoryapp/inventoryapp/internal/storage"
)

// Register 把所有路由挂到 router 上。
// store 是文件系统后端时额外暴露 /uploads/ 静态目录，
// 让对象存储的公开 URL 真正可达。
func (h *Handler) Register(r *mux.Router, store storage.ObjectStore) {
	r.HandleFunc("/api/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/session", h.Session).Methods(http.MethodGet)

	r.HandleFunc("/api/vehicles", h.ListVehicles).Methods(http.MethodGet)
	r.HandleFunc("/api/vehicles", h.AddVehicle).Methods(http.MethodPost)
	r.HandleFunc("/api/vehicles/{id}", h.UpdateVehicle).Methods(http.MethodPut)
	r.HandleFunc("/api/vehicles/{id}", h.DeleteVehicle).Methods(http.MethodDelete)

	r.HandleFunc("/api/vehicles/{id}/images", h.UploadImage).Methods(http.MethodPost)
	r.HandleFunc("/api/vehicles/{id}/images", h.DeleteImage).Methods(http.MethodDelete)

	if fs, ok := store.(*storage.FileSystemStore); ok {
		r.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(fs.Root()))),
		)
	}
}
