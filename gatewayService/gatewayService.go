package gatewayService

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"xnopay.com/payment-gateway/common"
	"xnopay.com/payment-gateway/config"
	"xnopay.com/payment-gateway/controllers"
	"xnopay.com/payment-gateway/gateway"
	"xnopay.com/payment-gateway/log"
	"xnopay.com/payment-gateway/nanorpc"
	"xnopay.com/payment-gateway/wsclient"
)

type Service struct {
	server     *http.Server
	subscriber *wsclient.Subscriber
	registry   *gateway.Registry
}

// Start assembles the gateway: node RPC client, optional confirmation
// subscriber, session registry and the HTTP API, and begins serving.
func Start(cfg *config.Configuration) (*Service, error) {
	tracer := common.CreateTracer("gatewayService")
	_, span := tracer.Start(context.Background(), "gatewayService-initialization")
	defer span.End()

	client := nanorpc.NewClient(cfg.GatewayConfig.RpcUrl)
	registry := gateway.NewRegistry()

	var subscriber *wsclient.Subscriber
	if cfg.GatewayConfig.WsUrl != "" {
		subscriber = wsclient.New(cfg.GatewayConfig.WsUrl)
		subscriber.Start()
		go pumpConfirmations(subscriber, registry)
	}

	controller := controllers.NewGatewayController(client, registry, subscriber, cfg.GatewayConfig)

	router := mux.NewRouter()
	router.HandleFunc("/api/payment", controller.CreatePayment).Methods("POST")
	router.HandleFunc("/api/payment/{id}", controller.GetPayment).Methods("GET")
	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "dev_version")
	})

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	service := &Service{
		subscriber: subscriber,
		registry:   registry,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: handlers.LoggingHandler(log.Writer(), corsHandler(router)),
		},
	}

	go func() {
		log.Infof("gateway service listening on %s", service.server.Addr)
		err := service.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("gateway service stopped: %s", err.Error())
		}
	}()

	return service, nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.subscriber != nil {
		s.subscriber.Close()
	}
	return s.server.Shutdown(ctx)
}

// pumpConfirmations turns push confirmations into out-of-cycle polls for the
// session watching the confirmed address. Sessions never depend on this.
func pumpConfirmations(subscriber *wsclient.Subscriber, registry *gateway.Registry) {
	for {
		select {
		case <-subscriber.Done():
			return
		case event := <-subscriber.Events():
			if payment, ok := registry.GetByAddress(event.ReceivingAddress); ok {
				payment.Nudge()
				continue
			}
			if payment, ok := registry.GetByAddress(event.Account); ok {
				payment.Nudge()
			}
		}
	}
}
