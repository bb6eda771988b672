package handler

import (
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/civicdesk/api/internal/media"
	"github.com/civicdesk/api/internal/model"
	"github.com/gin-gonic/gin"
)

const mediaField = "media"

var errMissingLocation = errors.New("latitude and longitude are required")

// formLocation reads the location fields shared by report and emergency
// submissions.
func formLocation(c *gin.Context) (model.Location, error) {
	latRaw, lngRaw := c.PostForm("latitude"), c.PostForm("longitude")
	if latRaw == "" || lngRaw == "" {
		return model.Location{}, errMissingLocation
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return model.Location{}, errors.New("latitude must be a number")
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return model.Location{}, errors.New("longitude must be a number")
	}
	if !finite(lat) || !finite(lng) {
		return model.Location{}, errors.New("latitude and longitude must be finite numbers")
	}
	return model.Location{
		Latitude:  lat,
		Longitude: lng,
		Address:   strings.TrimSpace(c.PostForm("address")),
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formFiles(c *gin.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[mediaField]
}

// storeMedia uploads the submitted files. It writes the error response
// itself and reports whether the caller may continue.
func storeMedia(c *gin.Context, uploader *media.Uploader, scope string, userID int64) (media.Upload, bool) {
	files := formFiles(c)
	if len(files) == 0 {
		return media.Upload{}, true
	}
	if uploader == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media uploads are disabled"})
		return media.Upload{}, false
	}
	up, err := uploader.Save(c.Request.Context(), scope, userID, files)
	if err != nil {
		respondError(c, err)
		return media.Upload{}, false
	}
	return up, true
}

// discardMedia removes the objects of a submission that was not saved.
func discardMedia(c *gin.Context, uploader *media.Uploader, up media.Upload) {
	if uploader == nil || len(up.Keys) == 0 {
		return
	}
	uploader.Discard(c.Request.Context(), up)
}
