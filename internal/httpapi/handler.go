// Package httpapi is the REST shell over the catalogue, member registry and
// lending engine.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/catalog"
	"github.com/bookstore/services/library/internal/db"
	"github.com/bookstore/services/library/internal/lending"
	"github.com/bookstore/services/library/internal/members"
	"github.com/bookstore/services/library/internal/repo"
)

type createBookRequest struct {
	Title           string `json:"title" validate:"required"`
	Author          string `json:"author" validate:"required"`
	ISBN            string `json:"isbn" validate:"required"`
	PublicationYear *int   `json:"publication_year" validate:"omitempty,gt=0"`
}

type updateBookRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=1"`
	Author          *string `json:"author" validate:"omitempty,min=1"`
	ISBN            *string `json:"isbn" validate:"omitempty,min=1"`
	PublicationYear *int    `json:"publication_year" validate:"omitempty,gt=0"`
}

type createMemberRequest struct {
	Name        string `json:"name" validate:"required"`
	ContactInfo string `json:"contact_info"`
}

type borrowRequest struct {
	MemberID uint `json:"member_id" validate:"required,gt=0"`
	BookID   uint `json:"book_id" validate:"required,gt=0"`
}

type updateBookResponse struct {
	Book          *db.Book `json:"book"`
	FieldsChanged []string `json:"fields_changed"`
}

type statsResponse struct {
	catalog.Stats
	OpenBorrowings int64 `json:"open_borrowings"`
}

// Handler serves the library REST API.
type Handler struct {
	catalog  *catalog.Service
	members  *members.Service
	lending  *lending.Engine
	validate *requestValidator
	log      *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(cat *catalog.Service, mem *members.Service, lend *lending.Engine, log *zap.Logger) *Handler {
	return &Handler{
		catalog:  cat,
		members:  mem,
		lending:  lend,
		validate: newRequestValidator(),
		log:      log,
	}
}

// RegisterRoutes mounts the API on router.
func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/books", h.CreateBook)
	router.GET("/api/v1/books", h.ListBooks)
	router.GET("/api/v1/books/:id", h.GetBook)
	router.PATCH("/api/v1/books/:id", h.UpdateBook)
	router.DELETE("/api/v1/books/:id", h.RemoveBook)
	router.POST("/api/v1/books/:id/return", h.ReturnBook)

	router.POST("/api/v1/members", h.CreateMember)
	router.GET("/api/v1/members", h.ListMembers)
	router.GET("/api/v1/members/:id", h.GetMember)
	router.GET("/api/v1/members/:id/borrowings", h.ListMemberBorrowings)

	router.POST("/api/v1/borrowings", h.Borrow)
	router.GET("/api/v1/stats", h.Stats)
}

func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createBookRequest
	if !h.decode(w, r, "CreateBook", &req) {
		return
	}

	id, err := h.catalog.AddBook(r.Context(), catalog.NewBook{
		Title:  req.Title,
		Author: req.Author,
		ISBN:   req.ISBN,
		Year:   req.PublicationYear,
	})
	if err != nil {
		h.fail(w, "CreateBook", err)
		return
	}

	book, err := h.catalog.GetBook(r.Context(), id)
	if err != nil {
		h.fail(w, "CreateBook", err)
		return
	}
	h.respond(w, "CreateBook", http.StatusCreated, book)
}

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books := []db.Book{}
	for book, err := range h.catalog.SearchBooks(r.Context(), r.URL.Query().Get("q")) {
		if err != nil {
			h.fail(w, "ListBooks", err)
			return
		}
		books = append(books, book)
	}
	h.respond(w, "ListBooks", http.StatusOK, books)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		h.fail(w, "GetBook", err)
		return
	}

	book, err := h.catalog.GetBook(r.Context(), id)
	if err != nil {
		h.fail(w, "GetBook", err)
		return
	}
	h.respond(w, "GetBook", http.StatusOK, book)
}

func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		h.fail(w, "UpdateBook", err)
		return
	}

	var req updateBookRequest
	if !h.decode(w, r, "UpdateBook", &req) {
		return
	}

	changed, err := h.catalog.UpdateBook(r.Context(), id, catalog.BookUpdate{
		Title:  req.Title,
		Author: req.Author,
		ISBN:   req.ISBN,
		Year:   req.PublicationYear,
	})
	if err != nil {
		h.fail(w, "UpdateBook", err)
		return
	}

	book, err := h.catalog.GetBook(r.Context(), id)
	if err != nil {
		h.fail(w, "UpdateBook", err)
		return
	}
	if changed == nil {
		changed = []string{}
	}
	h.respond(w, "UpdateBook", http.StatusOK, updateBookResponse{Book: book, FieldsChanged: changed})
}

// RemoveBook accepts either a book id or an ISBN in the path.
func (h *Handler) RemoveBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	book, err := h.catalog.ResolveBook(r.Context(), ps.ByName("id"))
	if err != nil {
		h.fail(w, "RemoveBook", err)
		return
	}

	if err := h.catalog.RemoveBook(r.Context(), book.ID); err != nil {
		h.fail(w, "RemoveBook", err)
		return
	}
	WriteNoContent(w)
}

func (h *Handler) ReturnBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		h.fail(w, "ReturnBook", err)
		return
	}

	result, err := h.lending.Return(r.Context(), id)
	if err != nil {
		h.fail(w, "ReturnBook", err)
		return
	}
	h.respond(w, "ReturnBook", http.StatusOK, result)
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createMemberRequest
	if !h.decode(w, r, "CreateMember", &req) {
		return
	}

	id, err := h.members.AddMember(r.Context(), req.Name, req.ContactInfo)
	if err != nil {
		h.fail(w, "CreateMember", err)
		return
	}

	member, err := h.members.GetMember(r.Context(), id)
	if err != nil {
		h.fail(w, "CreateMember", err)
		return
	}
	h.respond(w, "CreateMember", http.StatusCreated, member)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list := []db.Member{}
	for member, err := range h.members.SearchMembers(r.Context(), r.URL.Query().Get("q")) {
		if err != nil {
			h.fail(w, "ListMembers", err)
			return
		}
		list = append(list, member)
	}
	h.respond(w, "ListMembers", http.StatusOK, list)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		h.fail(w, "GetMember", err)
		return
	}

	member, err := h.members.GetMember(r.Context(), id)
	if err != nil {
		h.fail(w, "GetMember", err)
		return
	}
	h.respond(w, "GetMember", http.StatusOK, member)
}

func (h *Handler) ListMemberBorrowings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		h.fail(w, "ListMemberBorrowings", err)
		return
	}

	seq, err := h.lending.ListOpenBorrowingsForMember(r.Context(), id)
	if err != nil {
		h.fail(w, "ListMemberBorrowings", err)
		return
	}

	open := []repo.OpenBorrowing{}
	for ob, err := range seq {
		if err != nil {
			h.fail(w, "ListMemberBorrowings", err)
			return
		}
		open = append(open, ob)
	}
	h.respond(w, "ListMemberBorrowings", http.StatusOK, open)
}

func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req borrowRequest
	if !h.decode(w, r, "Borrow", &req) {
		return
	}

	result, err := h.lending.Borrow(r.Context(), req.MemberID, req.BookID)
	if err != nil {
		h.fail(w, "Borrow", err)
		return
	}
	h.respond(w, "Borrow", http.StatusCreated, result)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		h.fail(w, "Stats", err)
		return
	}
	open, err := h.lending.OpenBorrowings(r.Context())
	if err != nil {
		h.fail(w, "Stats", err)
		return
	}
	h.respond(w, "Stats", http.StatusOK, statsResponse{Stats: stats, OpenBorrowings: open})
}

// decode reads and validates a JSON body. It writes the error response and
// reports false when the body is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, handler string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.fail(w, handler, apperr.Invalid("body", "invalid JSON"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.fail(w, handler, err)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, handler string, status int, data any) {
	if err := WriteJSON(w, status, SuccessResponse{Data: data}); err != nil {
		h.log.Error("Failed to write response", zap.String("handler", handler), zap.Error(err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, handler string, err error) {
	if StatusFor(err) >= http.StatusInternalServerError {
		h.log.Error("Request failed", zap.String("handler", handler), zap.Error(err))
	}
	if writeErr := WriteError(w, err); writeErr != nil {
		h.log.Error("Failed to write error response", zap.String("handler", handler), zap.Error(writeErr))
	}
}

func parseID(ps httprouter.Params) (uint, error) {
	id, err := strconv.ParseUint(ps.ByName("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("id", "must be a positive integer")
	}
	return uint(id), nil
}
