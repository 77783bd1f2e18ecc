package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"midislicer/split"
	"midislicer/timeline"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/smf"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves grid splitting over HTTP",
	Long:  `Serves grid splitting over HTTP`,
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

type partPayload struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

type splitResponse struct {
	Parts []partPayload `json:"parts"`
}

type errorResponse struct {
	Error string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// HandleSplit accepts a raw MIDI file body and returns its grid parts,
// base64 encoded. The grid step comes from the bars query param.
func HandleSplit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, 400, "Could not read request body: "+err.Error())
		return
	}
	parsed, err := smf.ReadFrom(bytes.NewReader(body))
	if err != nil {
		writeError(w, 400, "Could not parse midi body: "+err.Error())
		return
	}

	bars := 1
	if v := r.URL.Query().Get("bars"); v != "" {
		bars, err = strconv.Atoi(v)
		if err != nil || bars < 1 {
			writeError(w, 400, "bars must be a positive integer")
			return
		}
	}

	parts, err := split.ByGrid(timeline.FromSMF(parsed), stepGrid(bars, 0), sliceSettings())
	if err != nil {
		writeError(w, 400, "Could not split: "+err.Error())
		return
	}

	var res splitResponse
	for i, part := range parts {
		var buf bytes.Buffer
		if _, err := part.ToSMF().WriteTo(&buf); err != nil {
			writeError(w, 500, "Could not encode part: "+err.Error())
			return
		}
		res.Parts = append(res.Parts, partPayload{
			Name: fmt.Sprintf("part%03d.mid", i+1),
			Data: base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
	}
	json.NewEncoder(w).Encode(res)
}

func serve() {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/split", HandleSplit).Methods("POST")
	handler := cors.Default().Handler(router)
	log.Fatal(http.ListenAndServe(":8080", handler))
}
