package httputil

import (
	"context"
	"net/http"
)

// DatabaseHealth reports the state of the database connection
type DatabaseHealth interface {
	Health(ctx context.Context) map[string]string
}

// BrokerHealth reports the state of the message broker connection
type BrokerHealth interface {
	Health() map[string]string
}

var brokerDisabled = map[string]string{"status": "disabled"}

// Health serves the service status. A nil broker is reported as disabled;
// callers holding a nil pointer must pass an untyped nil.
func Health(service string, db DatabaseHealth, broker BrokerHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rabbit := brokerDisabled
		if broker != nil {
			rabbit = broker.Health()
		}
		JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  service,
			"database": db.Health(r.Context()),
			"rabbitmq": rabbit,
		})
	}
}
