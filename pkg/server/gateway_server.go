package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/veilgate/veilgate/pkg/config"
	handlers "github.com/veilgate/veilgate/pkg/handlers/http"
	"github.com/veilgate/veilgate/pkg/middleware"
)

type (
	GatewayServerDI struct {
		Config              *config.Config
		Logger              *logrus.Logger
		GuardrailMiddleware *middleware.GuardrailMiddleware
		ChatHandler         handlers.Handler
	}
	GatewayServer struct {
		*BaseServer
		guardrailMiddleware *middleware.GuardrailMiddleware
		chatHandler         handlers.Handler
	}
)

func NewGatewayServer(di GatewayServerDI) *GatewayServer {
	s := &GatewayServer{
		BaseServer:          NewBaseServer(di.Config, di.Logger),
		guardrailMiddleware: di.GuardrailMiddleware,
		chatHandler:         di.ChatHandler,
	}
	s.BaseServer.setupMetricsEndpoint()
	return s
}

func (s *GatewayServer) Run() error {
	s.setupHealthCheck()

	s.router.Use(middleware.Metrics())
	if s.guardrailMiddleware != nil {
		s.router.Use(s.guardrailMiddleware.Handle)
	}

	s.router.Post("/chat", s.chatHandler.Handle)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.WithField("addr", addr).Info("starting gateway server")
	return s.router.Listen(addr)
}

func (s *GatewayServer) Shutdown() error {
	return s.router.Shutdown()
}
