package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xnopay.com/payment-gateway/common"
	"xnopay.com/payment-gateway/config"
	"xnopay.com/payment-gateway/gatewayService"
	"xnopay.com/payment-gateway/log"
)

func main() {
	cfg, err := config.ParseConfig()
	if err != nil {
		log.Fatalf("Error reading configuration: %v", err.Error())
	}

	tracerShutdownFunc := common.InitGlobalTracer(cfg.JaegerConfig)
	defer tracerShutdownFunc()

	service, err := gatewayService.Start(cfg)
	if err != nil {
		log.Fatalf("Error starting gateway service: %v", err.Error())
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := service.Shutdown(ctx); err != nil {
		log.Errorf("Error shutting down server: %v", err.Error())
	}
}
