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
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lostlondon/vic/services/vic/answer"
	"github.com/lostlondon/vic/services/vic/datatypes"
)

var tracer = otel.Tracer("vic.handlers")

// HandleAnswer runs the full answer pipeline for one user message.
//
// The pipeline itself never errors toward the user; the only failure this
// handler can return is a malformed request body.
func HandleAnswer(svc *answer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleAnswer")
		defer span.End()

		var req datatypes.AnswerRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the answer request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be empty"})
			return
		}

		resp := svc.Answer(ctx, req)
		span.SetAttributes(
			attribute.Bool("answer.cached", resp.Cached),
			attribute.Float64("answer.confidence", resp.Confidence),
		)
		c.JSON(http.StatusOK, resp)
	}
}
