package health

import (
	"net/http"

	"Flywheel/internal/httpjson"
)

func Handler(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}
