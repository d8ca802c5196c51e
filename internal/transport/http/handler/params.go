package handler

import (
	"fmt"
	"net/http"
	"strconv"
)

// requiredPage parses the mandatory `page` query parameter. Listings refuse
// to guess a default page.
func requiredPage(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 0, fmt.Errorf("page query parameter is required")
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("page must be a positive integer")
	}
	return page, nil
}
