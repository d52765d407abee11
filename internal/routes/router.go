package routes

import (
	"net/http"

	"github.com/ironbell/pressgang/internal/handler"
)

// Router wraps http.ServeMux and provides route setup
type Router struct {
	*http.ServeMux
}

// V1Handler returns a handler for v1 API routes
func (router *Router) V1Handler(stackHandler *handler.Stack, machineHandler *handler.Machine) http.Handler {
	mux := http.NewServeMux()

	// Setup stack routes
	stackMux := http.NewServeMux()
	stackMux.HandleFunc("POST /up", stackHandler.Up)
	stackMux.HandleFunc("POST /down", stackHandler.Down)
	stackMux.HandleFunc("POST /status", stackHandler.Status)
	stackMux.HandleFunc("POST /verify", stackHandler.Verify)
	mux.Handle("/stack/", http.StripPrefix("/stack", stackMux))

	// Setup machine routes
	machineMux := http.NewServeMux()
	machineMux.HandleFunc("POST /create", machineHandler.Create)
	machineMux.HandleFunc("POST /delete", machineHandler.Delete)
	machineMux.HandleFunc("POST /provision", machineHandler.Provision)
	machineMux.HandleFunc("POST /info", machineHandler.Info)
	mux.Handle("/machine/", http.StripPrefix("/machine", machineMux))

	return mux
}

// SetupMux creates and configures the main router
func SetupMux(stackHandler *handler.Stack, machineHandler *handler.Machine) *Router {
	router := Router{http.NewServeMux()}

	router.ServeMux.Handle("/api/v1/", http.StripPrefix("/api/v1", router.V1Handler(stackHandler, machineHandler)))

	router.ServeMux.HandleFunc("/heartbeat", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(200)
		writer.Write([]byte("still standing"))
	})

	return &router
}
