// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lostlondon/vic/services/vic/datatypes"
	"github.com/lostlondon/vic/services/vic/grounding"
)

// HandleValidate exposes the grounding check standalone, mainly for
// offline evaluation of stored transcripts.
func HandleValidate(v *grounding.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ValidateRequest
		if err := c.BindJSON(&req); err != nil {
			slog.Error("Failed to parse the validate request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		outcome := v.Validate(req.ResponseText, req.SourceContent)
		c.JSON(http.StatusOK, datatypes.ValidateResponse{
			Accepted: outcome.Accepted,
			Text:     outcome.Text,
			Reason:   outcome.Reason,
		})
	}
}
