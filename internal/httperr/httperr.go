// Package httperr writes the {"detail": ...} error envelope shared by
// every handler.
package httperr

import (
	"encoding/json"
	"net/http"
)

func Detail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
