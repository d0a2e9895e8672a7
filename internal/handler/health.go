package handler

import (
	"net/http"

	"github.com/dumelo/kolo/internal/errHandler"
	"github.com/dumelo/kolo/internal/response"
)

type healthCheckHandler struct {
	err *errHandler.ErrorHandler
}

func NewHealthCheckHandler(err *errHandler.ErrorHandler) *healthCheckHandler {
	return &healthCheckHandler{
		err: err,
	}
}
func (app *healthCheckHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"Status": "OK",
	}

	err := response.JSONOkResponse(w, data, "Service is healthy", nil)
	if err != nil {
		app.err.ServerError(w, r, err)
	}
}
