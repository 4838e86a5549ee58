// Package pdstest runs an in-memory PDS exposing the com.atproto.repo and
// createSession XRPC endpoints, for tests that exercise the real transport.
package pdstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/go-chi/chi/v5"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Account is a PDS account that can log in with createSession.
type Account struct {
	DID      string
	Handle   string
	Password string
}

// AccessToken is the bearer token the server issues for an account.
func (a Account) AccessToken() string {
	return "access-" + a.DID
}

type storedRecord struct {
	Value map[string]any
	CID   string
}

// Server is a fake PDS. Reads are public; writes require the bearer token of
// the repo owner.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]Account                             // DID -> account
	repos    map[string]map[string]map[string]*storedRecord // repo -> collection -> rkey -> record
	calls    []string
	lastTID  int64
}

// New starts a fake PDS serving the given accounts. It is closed when the
// test ends.
func New(t testing.TB, accounts ...Account) *Server {
	t.Helper()

	s := &Server{
		accounts: make(map[string]Account),
		repos:    make(map[string]map[string]map[string]*storedRecord),
	}
	for _, acct := range accounts {
		s.accounts[acct.DID] = acct
	}

	r := chi.NewRouter()
	r.Use(s.recordCall)
	r.Post("/xrpc/com.atproto.server.createSession", s.handleCreateSession)
	r.Post("/xrpc/com.atproto.repo.createRecord", s.handleCreateRecord)
	r.Post("/xrpc/com.atproto.repo.putRecord", s.handlePutRecord)
	r.Post("/xrpc/com.atproto.repo.deleteRecord", s.handleDeleteRecord)
	r.Get("/xrpc/com.atproto.repo.getRecord", s.handleGetRecord)
	r.Get("/xrpc/com.atproto.repo.listRecords", s.handleListRecords)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Seed stores a record directly, bypassing auth. Returns its URI and CID.
func (s *Server) Seed(repo, collection, rkey string, value map[string]any) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rkey == "" {
		rkey = s.nextTID()
	}
	rec := s.store(repo, collection, rkey, value)
	return recordURI(repo, collection, rkey), rec.CID
}

// Record returns a stored record value.
func (s *Server) Record(repo, collection, rkey string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.repos[repo][collection][rkey]
	if !ok {
		return nil, false
	}
	return rec.Value, true
}

// Records returns the rkeys stored in a collection, sorted.
func (s *Server) Records(repo, collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.repos[repo][collection])
}

// Calls returns the XRPC calls served so far as "METHOD nsid".
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ResetCalls clears the call log.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) recordCall(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+strings.TrimPrefix(r.URL.Path, "/xrpc/"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// nextTID returns a strictly increasing TID. Must be called with mu held.
func (s *Server) nextTID() string {
	micros := time.Now().UnixMicro()
	if micros <= s.lastTID {
		micros = s.lastTID + 1
	}
	s.lastTID = micros
	return syntax.NewTID(micros, 0).String()
}

// store must be called with mu held.
func (s *Server) store(repo, collection, rkey string, value map[string]any) *storedRecord {
	if s.repos[repo] == nil {
		s.repos[repo] = make(map[string]map[string]*storedRecord)
	}
	if s.repos[repo][collection] == nil {
		s.repos[repo][collection] = make(map[string]*storedRecord)
	}
	rec := &storedRecord{Value: value, CID: computeCID(value)}
	s.repos[repo][collection][rkey] = rec
	return rec
}

// authorize checks the bearer token belongs to repo. Must be called with mu held.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, repo string) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	acct, ok := s.accounts[repo]
	if !ok || token == "" || token != acct.AccessToken() {
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "Authentication Required")
		return false
	}
	return true
}

type writeRequest struct {
	Record     map[string]any `json:"record"`
	SwapRecord *string        `json:"swapRecord"`
	Repo       string         `json:"repo"`
	Collection string         `json:"collection"`
	RKey       string         `json:"rkey"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if (acct.Handle == req.Identifier || acct.DID == req.Identifier) && acct.Password == req.Password {
			writeJSON(w, map[string]any{
				"accessJwt":  acct.AccessToken(),
				"refreshJwt": "refresh-" + acct.DID,
				"did":        acct.DID,
				"handle":     acct.Handle,
			})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "Invalid identifier or password")
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorize(w, r, req.Repo) {
		return
	}
	if req.Collection == "" || req.Record == nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "collection and record are required")
		return
	}
	rkey := req.RKey
	if rkey == "" {
		rkey = s.nextTID()
	}
	if _, exists := s.repos[req.Repo][req.Collection][rkey]; exists {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Record already exists")
		return
	}

	rec := s.store(req.Repo, req.Collection, rkey, req.Record)
	writeJSON(w, map[string]any{"uri": recordURI(req.Repo, req.Collection, rkey), "cid": rec.CID})
}

func (s *Server) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorize(w, r, req.Repo) {
		return
	}
	if req.Collection == "" || req.RKey == "" || req.Record == nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "collection, rkey and record are required")
		return
	}
	if req.SwapRecord != nil {
		current, ok := s.repos[req.Repo][req.Collection][req.RKey]
		if !ok || current.CID != *req.SwapRecord {
			writeError(w, http.StatusConflict, "InvalidSwap", "Record was at a different CID")
			return
		}
	}

	rec := s.store(req.Repo, req.Collection, req.RKey, req.Record)
	writeJSON(w, map[string]any{"uri": recordURI(req.Repo, req.Collection, req.RKey), "cid": rec.CID})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorize(w, r, req.Repo) {
		return
	}
	delete(s.repos[req.Repo][req.Collection], req.RKey)
	writeJSON(w, map[string]any{})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	repo, collection, rkey := q.Get("repo"), q.Get("collection"), q.Get("rkey")

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.repos[repo][collection][rkey]
	if !ok {
		writeError(w, http.StatusBadRequest, "RecordNotFound", "Could not locate record: "+recordURI(repo, collection, rkey))
		return
	}
	writeJSON(w, map[string]any{
		"uri":   recordURI(repo, collection, rkey),
		"cid":   rec.CID,
		"value": rec.Value,
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	repo, collection, cursor := q.Get("repo"), q.Get("collection"), q.Get("cursor")
	limit := 50
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.repos[repo][collection]
	records := make([]map[string]any, 0, limit)
	next := ""
	for _, rkey := range sortedKeys(coll) {
		if cursor != "" && rkey <= cursor {
			continue
		}
		if len(records) == limit {
			next = records[len(records)-1]["rkey"].(string)
			break
		}
		records = append(records, map[string]any{
			"uri":   recordURI(repo, collection, rkey),
			"cid":   coll[rkey].CID,
			"value": coll[rkey].Value,
			"rkey":  rkey,
		})
	}
	for _, rec := range records {
		delete(rec, "rkey")
	}

	resp := map[string]any{"records": records}
	if next != "" {
		resp["cursor"] = next
	}
	writeJSON(w, resp)
}

func recordURI(repo, collection, rkey string) string {
	return fmt.Sprintf("at://%s/%s/%s", repo, collection, rkey)
}

func sortedKeys(m map[string]*storedRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// computeCID derives a CIDv1 (dag-cbor codec, sha2-256) from the record's
// JSON encoding. Real PDSs hash the DAG-CBOR bytes; tests only need stable,
// content-derived, well-formed CIDs.
func computeCID(value map[string]any) string {
	data, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("pdstest: unencodable record: %v", err))
	}
	c, err := cid.NewPrefixV1(cid.DagCBOR, multihash.SHA2_256).Sum(data)
	if err != nil {
		panic(fmt.Sprintf("pdstest: cid: %v", err))
	}
	return c.String()
}

// CIDFor returns the CID the server would assign to value.
func CIDFor(value map[string]any) string {
	return computeCID(value)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, name, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": name, "message": message})
}
