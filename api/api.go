/*
Copyright 2025 Payrail Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"github.com/payrail/payrail/config"

	"github.com/payrail/payrail/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/payrail/payrail"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	payrail *payrail.Payrail
	router  *gin.Engine
}

// Router wires the HTTP surface. Payment routes require a verified bearer
// token; the webhook route authenticates by signature instead, since the
// caller is the provider, not a tenant.
func (a Api) Router() *gin.Engine {
	router := a.router

	secured := router.Group("/", middleware.JWTAuthMiddleware())
	secured.POST("/payments", a.CreatePayment)
	secured.POST("/payments/initiate-session", a.InitiatePaymentSession)
	secured.GET("/payments/:id", a.GetPayment)
	secured.GET("/payments", a.GetAllPayments)

	router.POST("/payments/webhooks/:provider", a.ProviderWebhook)

	return a.router
}

func NewAPI(p *payrail.Payrail) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware("payrail"))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{payrail: p, router: r}
}
