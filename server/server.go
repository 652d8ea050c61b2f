package server

import (
	"crypto/tls"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/serisow/docqa/handlers"
	"github.com/urfave/negroni"
	"golang.org/x/crypto/acme/autocert"
)

type Config struct {
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Dependencies are the services the HTTP surface delegates to.
type Dependencies struct {
	Documents  handlers.DocumentService
	Dispatcher handlers.IngestionDispatcher
	Narrator   handlers.Narrator
	StorageDir string
	Logger     *slog.Logger
}

func SetupRoutes(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	documentHandler := handlers.NewDocumentHandler(deps.Documents, deps.Dispatcher, deps.StorageDir, deps.Logger)
	r.HandleFunc("/upload-pdf", documentHandler.Upload).Methods("POST")
	r.HandleFunc("/documents", documentHandler.List).Methods("GET")
	r.HandleFunc("/documents/{id}", documentHandler.Get).Methods("GET")
	r.HandleFunc("/documents/{id}/query", documentHandler.Query).Methods("POST")
	r.HandleFunc("/documents/{id}/interactions", documentHandler.Interactions).Methods("GET")

	pipelineHandler := handlers.NewPipelineHandler(deps.Documents, deps.Logger)
	r.HandleFunc("/documents/{id}/status", pipelineHandler.GetExecutionStatus).Methods("GET")

	audioHandler := handlers.NewAudioHandler(deps.Documents, deps.Narrator, deps.Logger)
	r.HandleFunc("/documents/{id}/generate-audio", audioHandler.GenerateDocumentAudio).Methods("POST")
	r.HandleFunc("/generate-selection-audio", audioHandler.GenerateSelectionAudio).Methods("POST")

	// Audio, highlighted copies and uploaded documents.
	r.PathPrefix("/data/").Handler(http.StripPrefix("/data/", http.FileServer(http.Dir(deps.StorageDir)))).Methods("GET")

	return r
}

func SetupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())
	n.UseHandler(r)
	return n
}

// ServeProduction serves HTTPS with certificates obtained through ACME.
func ServeProduction(cfg Config, n *negroni.Negroni) {
	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domains...),
		Cache:      autocert.DirCache(cfg.CertCacheDir),
	}

	// Port 80 answers ACME "http-01" challenges and redirects everything
	// else to HTTPS.
	go func() {
		srv := &http.Server{
			Addr:         ":80",
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  cfg.IdleTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}

		err := srv.ListenAndServe()
		log.Fatal(err)
	}()

	tlsConfig := &tls.Config{
		GetCertificate:   autocertManager.GetCertificate,
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPSPort,
		Handler:      n,
		TLSConfig:    tlsConfig,
		IdleTimeout:  cfg.IdleTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	err := srv.ListenAndServeTLS("", "") // Key and cert provided automatically by autocert.
	log.Fatal(err)
}

// ServeDevelopment serves plain HTTP.
func ServeDevelopment(s *http.Server) {
	log.Fatal(s.ListenAndServe())
}
