package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amirrezam75/racerelay/pkg/logx"

	"go.uber.org/zap"
)

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encode(body, w)
}

func encode(body any, w http.ResponseWriter) {
	response, err := json.Marshal(body)
	if err != nil {
		logx.Logger.Error(err.Error(), zap.String("desc", "could not marshal response"))
		return
	}

	_, err = w.Write(response)
	if err != nil {
		logx.Logger.Error(err.Error(), zap.String("desc", "could not write response"))
		return
	}
}
