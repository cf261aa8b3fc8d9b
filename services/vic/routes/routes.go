// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/lostlondon/vic/services/vic/answer"
	"github.com/lostlondon/vic/services/vic/grounding"
	"github.com/lostlondon/vic/services/vic/handlers"
)

// SetupRoutes registers all HTTP endpoints. client and embedServiceURL
// may be empty in lightweight mode, which disables the ingestion routes.
func SetupRoutes(router *gin.Engine, svc *answer.Service, validator *grounding.Validator,
	client *weaviate.Client, embedServiceURL string) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/answer", handlers.HandleAnswer(svc))
		v1.POST("/validate", handlers.HandleValidate(validator))

		if client != nil {
			v1.POST("/articles", handlers.IngestArticle(client, embedServiceURL))
			v1.GET("/articles", handlers.ListArticles(client))
		}
	}
}
