package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dumelo/kolo/internal/context"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/dumelo/kolo/internal/request"
	"github.com/dumelo/kolo/internal/response"
	"github.com/dumelo/kolo/internal/validator"
)

type JarResponseData struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Currency          string  `json:"currency"`
	Status            string  `json:"status"`
	TotalContributed  float64 `json:"total_contributed"`
	ContributionCount int     `json:"contribution_count"`
	GoalAmount        float64 `json:"goal_amount,omitempty"`
	WhoPaysFees       string  `json:"who_pays_fees"`
	ShortCode         string  `json:"short_code"`
	CoverImage        string  `json:"cover_image,omitempty"`
	Deadline          string  `json:"deadline,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

func newJarResponseData(jar *repository.Jar) *JarResponseData {
	data := &JarResponseData{
		ID:                jar.ID,
		Name:              jar.Name,
		Currency:          jar.Currency,
		Status:            jar.Status,
		TotalContributed:  jar.TotalContributed,
		ContributionCount: jar.ContributionCount,
		GoalAmount:        jar.GoalAmount.Float64,
		WhoPaysFees:       jar.WhoPaysFees,
		ShortCode:         jar.ShortCode,
		CoverImage:        jar.CoverImage.String,
		CreatedAt:         jar.CreatedAt.Format(time.RFC3339),
	}

	if jar.Deadline.Valid {
		data.Deadline = jar.Deadline.Time.Format(time.RFC3339)
	}

	return data
}

func (h *RouteHandler) HandleCreateJar(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string              `json:"name"`
		Currency    string              `json:"currency"`
		GoalAmount  float64             `json:"goal_amount"`
		WhoPaysFees string              `json:"who_pays_fees"`
		Deadline    string              `json:"deadline"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	input.Validator.Check(validator.NotBlank(input.Name), "Name is required")
	input.Validator.Check(len(input.Name) <= 100, "Name is too long")
	input.Validator.Check(validator.NotBlank(input.Currency), "Currency is required")
	input.Validator.Check(input.GoalAmount >= 0, "Goal amount cannot be negative")

	if input.WhoPaysFees == "" {
		input.WhoPaysFees = repository.JarContributorPaysFees
	}
	input.Validator.Check(validator.In(input.WhoPaysFees,
		repository.JarCreatorPaysFees,
		repository.JarContributorPaysFees,
	), "Who pays fees must be creator or contributor")

	var deadline sql.NullTime
	if input.Deadline != "" {
		parsed, err := time.Parse("2006-01-02", input.Deadline)
		if err != nil {
			input.Validator.AddError("Deadline must be in YYYY-MM-DD format")
		} else {
			input.Validator.Check(parsed.After(time.Now()), "Deadline must be in the future")
			deadline = sql.NullTime{Time: parsed, Valid: true}
		}
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	shortCode, err := h.Helper.GenerateShortCode()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	newJar := &repository.Jar{
		Name:        input.Name,
		Currency:    input.Currency,
		GoalAmount:  sql.NullFloat64{Float64: input.GoalAmount, Valid: input.GoalAmount > 0},
		WhoPaysFees: input.WhoPaysFees,
		CreatorID:   user.ID,
		ShortCode:   shortCode,
		Deadline:    deadline,
	}

	jarID, err := h.JarRepo.Insert(newJar, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	jar, _, err := h.JarRepo.GetOne(jarID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityRepo.Insert(&repository.ActivityLog{
			UserID:      user.ID,
			Entity:      repository.ActivityLogJarEntity,
			EntityId:    jarID,
			Description: JarActivityLogCreatedDescription,
		})

		if err != nil {
			log.Printf("Error logging jar creation action: %v", err)
			return err
		}
		return nil
	})

	message := "Jar created successfully"

	err = response.JSONCreatedResponse(w, newJarResponseData(jar), message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandleUserJars(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	jars, found, err := h.JarRepo.ListByCreator(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		message := "No jar found"
		err = response.JSONOkResponse(w, []JarResponseData{}, message, nil)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	data := make([]*JarResponseData, len(jars))
	for i := range jars {
		data[i] = newJarResponseData(&jars[i])
	}

	message := "Jars retrieved successfully"

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandleJarDetails(w http.ResponseWriter, r *http.Request) {
	jar, found, err := h.JarRepo.GetOne(r.PathValue("id"))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		response.JSONErrorResponse(w, nil, ErrJarNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	message := "Jar details fetched successfully"

	err = response.JSONOkResponse(w, newJarResponseData(jar), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleJarByShortCode backs the public payment link; it needs no
// authentication and exposes only what a contributor needs to see.
func (h *RouteHandler) HandleJarByShortCode(w http.ResponseWriter, r *http.Request) {
	jar, found, err := h.JarRepo.GetByShortCode(r.PathValue("code"))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		response.JSONErrorResponse(w, nil, ErrJarNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	data := map[string]any{
		"name":        jar.Name,
		"currency":    jar.Currency,
		"status":      jar.Status,
		"coverImage":  jar.CoverImage.String,
		"whoPaysFees": jar.WhoPaysFees,
	}

	message := "Jar fetched successfully"

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleUpdateJar lets the creator (or an admin) change a jar's details.
// Anyone else is rejected before anything is written.
func (h *RouteHandler) HandleUpdateJar(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string              `json:"name"`
		GoalAmount  float64             `json:"goal_amount"`
		WhoPaysFees string              `json:"who_pays_fees"`
		Deadline    string              `json:"deadline"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	jar, found, err := h.JarRepo.GetOne(r.PathValue("id"))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		response.JSONErrorResponse(w, nil, ErrJarNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	if jar.CreatorID != user.ID && user.Role != repository.UserRoleAdmin {
		response.JSONErrorResponse(w, nil, ErrPermission.Error(), http.StatusForbidden, nil)
		return
	}

	if input.Name != "" {
		jar.Name = input.Name
	}
	if input.GoalAmount > 0 {
		jar.GoalAmount = sql.NullFloat64{Float64: input.GoalAmount, Valid: true}
	}
	if input.WhoPaysFees != "" {
		input.Validator.Check(validator.In(input.WhoPaysFees,
			repository.JarCreatorPaysFees,
			repository.JarContributorPaysFees,
		), "Who pays fees must be creator or contributor")
		jar.WhoPaysFees = input.WhoPaysFees
	}
	if input.Deadline != "" {
		parsed, err := time.Parse("2006-01-02", input.Deadline)
		if err != nil {
			input.Validator.AddError("Deadline must be in YYYY-MM-DD format")
		} else {
			jar.Deadline = sql.NullTime{Time: parsed, Valid: true}
		}
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	err = h.JarRepo.Update(jar)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Jar updated successfully"

	err = response.JSONOkResponse(w, newJarResponseData(jar), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleDeleteJar soft-deletes a jar. A jar that still holds completed
// contributions can never be deleted, and a frozen jar cannot be deleted
// regardless of balance.
func (h *RouteHandler) HandleDeleteJar(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	jar, found, err := h.JarRepo.GetOne(r.PathValue("id"))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		response.JSONErrorResponse(w, nil, ErrJarNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	if jar.CreatorID != user.ID && user.Role != repository.UserRoleAdmin {
		response.JSONErrorResponse(w, nil, ErrPermission.Error(), http.StatusForbidden, nil)
		return
	}

	if jar.Status == repository.JarStatusFrozen {
		response.JSONErrorResponse(w, nil, ErrJarFrozen.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	// the ledger, not the cached total, decides whether funds are held
	balance, err := h.TransactionRepo.SumCompletedContributions(jar.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if balance > 0 {
		response.JSONErrorResponse(w, nil, ErrJarHasFunds.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	err = h.JarRepo.Delete(jar.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityRepo.Insert(&repository.ActivityLog{
			UserID:      user.ID,
			Entity:      repository.ActivityLogJarEntity,
			EntityId:    jar.ID,
			Description: JarActivityLogDeletedDescription,
		})

		if err != nil {
			log.Printf("Error logging jar deletion action: %v", err)
			return err
		}
		return nil
	})

	message := "Jar deleted successfully"

	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandleUploadJarCover(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	jar, found, err := h.JarRepo.GetOne(r.PathValue("id"))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		response.JSONErrorResponse(w, nil, ErrJarNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	if jar.CreatorID != user.ID {
		response.JSONErrorResponse(w, nil, ErrPermission.Error(), http.StatusForbidden, nil)
		return
	}

	err = r.ParseMultipartForm(10 << 20) // 10 MB
	if err != nil {
		h.ErrHandler.BadRequest(w, r, errors.New("invalid request data"))
		return
	}

	// Get the uploaded file
	uploaded, header, err := r.FormFile("file")
	if err != nil {
		h.ErrHandler.BadRequest(w, r, errors.New("error retrieving the file"))
		return
	}
	defer uploaded.Close()

	fileExtension := filepath.Ext(header.Filename)

	// Save the file temporarily to the server
	tempFile, err := os.CreateTemp("", fmt.Sprintf("upload-*%s", fileExtension))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	defer tempFile.Close()
	defer os.Remove(tempFile.Name())

	// Write the uploaded content to the temporary file
	_, err = tempFile.ReadFrom(uploaded)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	// upload to cloud storage
	fileURL, err := h.FileUploader.UploadFile(tempFile.Name())
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = h.JarRepo.SetCoverImage(jar.ID, fileURL)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Cover image uploaded successfully"

	err = response.JSONOkResponse(w, map[string]any{"coverImage": fileURL}, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
