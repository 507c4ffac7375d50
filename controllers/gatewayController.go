package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/api/trace"

	"xnopay.com/payment-gateway/common"
	"xnopay.com/payment-gateway/config"
	"xnopay.com/payment-gateway/gateway"
	"xnopay.com/payment-gateway/log"
	"xnopay.com/payment-gateway/models"
	"xnopay.com/payment-gateway/wsclient"
)

type GatewayController struct {
	Client     gateway.LedgerClient
	Registry   *gateway.Registry
	Subscriber *wsclient.Subscriber
	Cfg        config.GatewayConfig

	tracer trace.Tracer
}

func NewGatewayController(client gateway.LedgerClient, registry *gateway.Registry, subscriber *wsclient.Subscriber, cfg config.GatewayConfig) *GatewayController {
	return &GatewayController{
		Client:     client,
		Registry:   registry,
		Subscriber: subscriber,
		Cfg:        cfg,
		tracer:     common.CreateTracer("controllers"),
	}
}

func (g *GatewayController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	_, span := g.tracer.Start(r.Context(), "controller-CreatePayment")
	defer span.End()

	request := &models.CreatePaymentRequest{}
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		Respond(w, MessageWithStatus(http.StatusBadRequest, "malformed request body"))
		return
	}

	timeout := g.Cfg.DefaultTimeout
	if request.TimeoutSeconds > 0 {
		timeout = time.Duration(request.TimeoutSeconds) * time.Second
	}
	seed := request.Seed
	if seed == "" {
		seed = g.Cfg.Seed
	}

	payment, err := gateway.Create(gateway.Config{
		Seed:         seed,
		Index:        request.Index,
		Timeout:      timeout,
		Destination:  request.Destination,
		PollInterval: g.Cfg.PollInterval,
	}, request.Amount, g.Client)
	if err != nil {
		Respond(w, MessageWithStatus(http.StatusBadRequest, err.Error()))
		return
	}

	g.Registry.Add(payment)
	if g.Subscriber != nil {
		g.Subscriber.Subscribe(payment.Address())
	}

	err = payment.Start(g.onResolved("settled"), g.onResolved("timed out"))
	if err != nil {
		g.Registry.Remove(payment.Id)
		Respond(w, MessageWithStatus(http.StatusInternalServerError, err.Error()))
		return
	}

	Respond(w, &models.CreatePaymentResponse{
		PaymentId: payment.Id,
		Address:   payment.Address(),
		Amount:    payment.RequestedAmount(),
	})
}

func (g *GatewayController) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	payment, ok := g.Registry.Get(id)
	if !ok {
		Respond(w, MessageWithStatus(http.StatusNotFound, "unknown payment "+id))
		return
	}

	Respond(w, &models.PaymentStatusResponse{
		PaymentId:       payment.Id,
		Status:          payment.Status().String(),
		Address:         payment.Address(),
		Destination:     payment.Destination,
		RequestedAmount: payment.RequestedAmount(),
		ObservedAmount:  payment.ObservedAmount(),
	})
}

// onResolved is the terminal callback for both outcomes: log the outcome and
// drop the push subscription for the session's address.
func (g *GatewayController) onResolved(outcome string) gateway.CallbackFunc {
	return func(payment *gateway.Payment) {
		log.Infof("payment %s %s (observed %f, requested %f)",
			payment.Id, outcome, payment.ObservedAmount(), payment.RequestedAmount())
		if g.Subscriber != nil {
			g.Subscriber.Unsubscribe(payment.Address())
		}
	}
}
