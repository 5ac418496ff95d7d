package properties

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/assignments"
	"github.com/ekaramel/rentdesk/internal/auth"
	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/mail"
	"github.com/ekaramel/rentdesk/internal/models"
)

var (
	createSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"required": ["rentPrice", "rentDate", "endDate", "location"],
		"properties": {
			"rentPrice": {"type": "integer", "minimum": 0},
			"rentDate": {"type": "string"},
			"endDate": {"type": "string"},
			"location": {"type": "string", "minLength": 1},
			"tenantName": {"type": "string"}
		}
	}`)
	updateSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"properties": {
			"rentPrice": {"type": "integer", "minimum": 0},
			"rentDate": {"type": "string"},
			"endDate": {"type": "string"},
			"location": {"type": "string", "minLength": 1},
			"tenantName": {"type": "string"}
		}
	}`)
	notesSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"required": ["notes"],
		"properties": {
			"notes": {}
		}
	}`)
	assignSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"required": ["targetMail", "role"],
		"properties": {
			"targetMail": {"type": "string", "format": "email"},
			"role": {"type": "string", "enum": ["owner", "realtor"]}
		}
	}`)
)

type propertyRequest struct {
	RentPrice  *int    `json:"rentPrice"`
	RentDate   *string `json:"rentDate"`
	EndDate    *string `json:"endDate"`
	Location   *string `json:"location"`
	TenantName *string `json:"tenantName"`
}

// parseDate accepts both plain dates and RFC3339 timestamps.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Register wires the property routes onto an authenticated router group.
func Register(r gin.IRouter, db *gorm.DB, pub *mail.Publisher, uploadDir string) {
	r.POST("/properties", auth.RequireRole(models.RoleRealtor), httpapi.ValidateBody(createSchema), createHandler(db))
	r.GET("/properties", listHandler(db))
	r.PUT("/properties/:id", httpapi.ValidateBody(updateSchema), updateHandler(db))
	r.DELETE("/properties/:id", deleteHandler(db))
	r.PUT("/properties/:id/notes", httpapi.ValidateBody(notesSchema), notesHandler(db))
	r.POST("/properties/:id/contract", uploadContractHandler(db, uploadDir))
	r.DELETE("/properties/:id/contract", deleteContractHandler(db))
	r.PUT("/properties/:id/assign", httpapi.ValidateBody(assignSchema), assignHandler(db, pub))
}

func createHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req propertyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		rentDate, err := parseDate(*req.RentDate)
		if err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "rentDate must be a date")
			return
		}
		endDate, err := parseDate(*req.EndDate)
		if err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "endDate must be a date")
			return
		}
		if err := ValidateDates(rentDate, endDate); err != nil {
			httpapi.Error(c, err)
			return
		}

		userID := auth.MustUserID(c)
		if err := CheckListingQuota(c.Request.Context(), db, userID, time.Now()); err != nil {
			httpapi.Error(c, err)
			return
		}

		property := models.Property{
			RentPrice: *req.RentPrice,
			RentDate:  rentDate,
			EndDate:   endDate,
			Location:  *req.Location,
			RealtorID: userID,
		}
		if req.TenantName != nil {
			property.TenantName = *req.TenantName
		}

		if err := db.Create(&property).Error; err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusCreated, gin.H{"property": property})
	}
}

func listHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.MustUserID(c)

		var list []models.Property
		err := db.WithContext(c.Request.Context()).
			Where("realtor_id = ? OR owner_id = ?", userID, userID).
			Order("created_at DESC").
			Find(&list).Error
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{"properties": list})
	}
}

func updateHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		property, ok := loadFromPath(c, db)
		if !ok {
			return
		}

		var req propertyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		rentDate, endDate := property.RentDate, property.EndDate
		if req.RentDate != nil {
			parsed, err := parseDate(*req.RentDate)
			if err != nil {
				httpapi.Fail(c, http.StatusBadRequest, "rentDate must be a date")
				return
			}
			rentDate = parsed
		}
		if req.EndDate != nil {
			parsed, err := parseDate(*req.EndDate)
			if err != nil {
				httpapi.Fail(c, http.StatusBadRequest, "endDate must be a date")
				return
			}
			endDate = parsed
		}
		if err := ValidateDates(rentDate, endDate); err != nil {
			httpapi.Error(c, err)
			return
		}

		updates := map[string]interface{}{
			"rent_date": rentDate,
			"end_date":  endDate,
		}
		if req.RentPrice != nil {
			updates["rent_price"] = *req.RentPrice
		}
		if req.Location != nil {
			updates["location"] = *req.Location
		}
		if req.TenantName != nil {
			updates["tenant_name"] = *req.TenantName
		}

		if err := db.Model(property).Updates(updates).Error; err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{"property": property})
	}
}

func deleteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		property, ok := loadFromPath(c, db)
		if !ok {
			return
		}

		if err := Delete(c.Request.Context(), db, property); err != nil {
			httpapi.Error(c, err)
			return
		}

		if property.ContractFile != "" {
			if err := os.Remove(property.ContractFile); err != nil && !os.IsNotExist(err) {
				// The listing is gone either way; an orphaned file is not a
				// request failure.
				c.Error(err) //nolint:errcheck
			}
		}

		httpapi.Success(c, http.StatusOK, gin.H{"message": "property deleted"})
	}
}

func notesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		property, ok := loadFromPath(c, db)
		if !ok {
			return
		}

		var req struct {
			Notes json.RawMessage `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := db.Model(property).Update("notes", datatypes.JSON(req.Notes)).Error; err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{"message": "notes updated"})
	}
}

func uploadContractHandler(db *gorm.DB, uploadDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		property, ok := loadFromPath(c, db)
		if !ok {
			return
		}

		file, err := c.FormFile("contract")
		if err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "contract file is required")
			return
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext != ".pdf" {
			httpapi.Fail(c, http.StatusBadRequest, "contract must be a PDF file")
			return
		}

		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			httpapi.Error(c, err)
			return
		}
		dest := filepath.Join(uploadDir, uuid.New().String()+ext)
		if err := c.SaveUploadedFile(file, dest); err != nil {
			httpapi.Error(c, err)
			return
		}

		previous := property.ContractFile
		if err := db.Model(property).Update("contract_file", dest).Error; err != nil {
			httpapi.Error(c, err)
			return
		}
		if previous != "" {
			_ = os.Remove(previous)
		}

		httpapi.Success(c, http.StatusOK, gin.H{"contractFile": dest})
	}
}

func deleteContractHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		property, ok := loadFromPath(c, db)
		if !ok {
			return
		}
		if property.ContractFile == "" {
			httpapi.Fail(c, http.StatusNotFound, "property has no contract file")
			return
		}

		path := property.ContractFile
		if err := db.Model(property).Update("contract_file", "").Error; err != nil {
			httpapi.Error(c, err)
			return
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.Error(err) //nolint:errcheck
		}

		httpapi.Success(c, http.StatusOK, gin.H{"message": "contract file removed"})
	}
}

// assignHandler is the invite alias on the property resource; it shares the
// assignment engine's semantics.
func assignHandler(db *gorm.DB, pub *mail.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid property id")
			return
		}

		var req struct {
			TargetMail string `json:"targetMail"`
			Role       string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		assignment, err := assignments.Create(c.Request.Context(), db, pub, assignments.CreateInput{
			PropertyID: uint(id),
			FromUserID: auth.MustUserID(c),
			TargetMail: req.TargetMail,
			Role:       req.Role,
		})
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{"assignment": assignment})
	}
}

func loadFromPath(c *gin.Context, db *gorm.DB) (*models.Property, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httpapi.Fail(c, http.StatusBadRequest, "invalid property id")
		return nil, false
	}

	property, loadErr := LoadAuthorized(c.Request.Context(), db, uint(id), auth.MustUserID(c))
	if loadErr != nil {
		httpapi.Error(c, loadErr)
		return nil, false
	}
	return property, true
}
