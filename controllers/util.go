package controllers

import (
	"encoding/json"
	"net/http"

	"xnopay.com/payment-gateway/log"
)

type ResponseMessage struct {
	Status int
	Data   interface{}
}

func Message(message string) ResponseMessage {
	return ResponseMessage{
		Status: http.StatusOK,
		Data:   map[string]interface{}{"message": message},
	}
}

func MessageWithStatus(status int, message string) ResponseMessage {
	return ResponseMessage{
		Status: status,
		Data:   map[string]interface{}{"message": message},
	}
}

func MessageWithData(status int, data interface{}) ResponseMessage {
	return ResponseMessage{
		Status: status,
		Data:   data,
	}
}

func Respond(w http.ResponseWriter, data interface{}) {
	w.Header().Add("Content-Type", "application/json")

	var err error

	switch res := data.(type) {
	case ResponseMessage:
		w.WriteHeader(res.Status)
		err = json.NewEncoder(w).Encode(res.Data)
	default:
		w.WriteHeader(http.StatusOK)
		err = json.NewEncoder(w).Encode(data)
	}

	if err != nil {
		log.Errorf("Error encoding data for response: %v", err.Error())
	}
}
