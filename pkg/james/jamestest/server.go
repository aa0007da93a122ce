// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package jamestest provides an in-memory fake of the James / TMail webadmin
// API for tests.
package jamestest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aiku/james-sync/pkg/james"
)

// Token is the bearer token the fake accepts unless Server.Token is changed.
const Token = "test-token"

// Call records one request received by the fake.
type Call struct {
	Method string
	Path   string
	Body   string
}

// Mapping is a user mapping as stored by the fake, any type.
type Mapping struct {
	Type    string
	Mapping string
}

// Server is an httptest server simulating the webadmin API. All state is
// per-instance; seed it with the helper methods before exercising a client.
type Server struct {
	Server *httptest.Server
	Token  string

	mu         sync.Mutex
	calls      []Call
	users      map[string]string
	aliases    map[string][]string
	forwards   map[string][]string
	mappings   map[string][]Mapping
	quotas     map[string]int64
	identities map[string][]james.Identity
	contacts   map[string]james.Contact

	// FailEndpoints makes every request whose decoded path contains one of
	// the keys answer 500.
	FailEndpoints map[string]bool
	// HeadStatus overrides the status of HEAD /users/{email} when non-zero.
	HeadStatus int
}

// NewServer starts a fake webadmin server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		Token:         Token,
		users:         make(map[string]string),
		aliases:       make(map[string][]string),
		forwards:      make(map[string][]string),
		mappings:      make(map[string][]Mapping),
		quotas:        make(map[string]int64),
		identities:    make(map[string][]james.Identity),
		contacts:      make(map[string]james.Contact),
		FailEndpoints: make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

func (s *Server) URL() string {
	return s.Server.URL
}

func (s *Server) Close() {
	s.Server.Close()
}

// Calls returns a copy of the recorded requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Call, len(s.calls))
	copy(cp, s.calls)
	return cp
}

// Writes returns the recorded requests that are not GET or HEAD.
func (s *Server) Writes() []Call {
	var writes []Call
	for _, c := range s.Calls() {
		if c.Method != http.MethodGet && c.Method != http.MethodHead {
			writes = append(writes, c)
		}
	}
	return writes
}

// CalledPath reports whether any request path contained path.
func (s *Server) CalledPath(path string) bool {
	for _, c := range s.Calls() {
		if strings.Contains(c.Path, path) {
			return true
		}
	}
	return false
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) AddUser(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = "secret"
}

func (s *Server) HasUser(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[email]
	return ok
}

// Password returns the password the account was created with.
func (s *Server) Password(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email]
}

func (s *Server) SetAliases(email string, sources ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[email] = slices.Clone(sources)
}

func (s *Server) AliasesOf(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.aliases[email])
}

func (s *Server) SetForwards(email string, targets ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwards[email] = slices.Clone(targets)
}

func (s *Server) ForwardsOf(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.forwards[email])
}

func (s *Server) SetMappings(email string, mappings ...Mapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[email] = slices.Clone(mappings)
}

func (s *Server) MappingsOf(email string) []Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.mappings[email])
}

func (s *Server) SetQuota(email string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotas[email] = size
}

// QuotaOf returns the stored quota and whether one is set.
func (s *Server) QuotaOf(email string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotas[email]
	return q, ok
}

func (s *Server) AddIdentity(identity james.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity.Email] = append(s.identities[identity.Email], identity)
}

func (s *Server) IdentitiesOf(email string) []james.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.identities[email])
}

func (s *Server) SetContact(contact james.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[contact.EmailAddress] = contact
}

func (s *Server) ContactOf(email string) (james.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[email]
	return c, ok
}

func (s *Server) record(method, path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: method, Path: path, Body: body})
}

// segments splits the escaped request path and decodes each component, so
// an encoded '/' or '+' inside an address stays within its segment.
func segments(r *http.Request) []string {
	raw := strings.Split(strings.Trim(r.URL.EscapedPath(), "/"), "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		dec, err := url.PathUnescape(seg)
		if err != nil {
			dec = seg
		}
		out = append(out, dec)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"statusCode": status, "message": msg})
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.record(r.Method, r.URL.Path, string(body))

	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeMessage(w, http.StatusUnauthorized, "invalid token")
		return
	}
	for prefix := range s.FailEndpoints {
		if strings.Contains(r.URL.Path, prefix) {
			writeMessage(w, http.StatusInternalServerError, "fake error")
			return
		}
	}

	seg := segments(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	// GET /users
	case r.Method == http.MethodGet && len(seg) == 1 && seg[0] == "users":
		users := make([]map[string]string, 0, len(s.users))
		for _, u := range sortedKeys(s.users) {
			users = append(users, map[string]string{"username": u})
		}
		writeJSON(w, http.StatusOK, users)

	// HEAD /users/{email}
	case r.Method == http.MethodHead && len(seg) == 2 && seg[0] == "users":
		if s.HeadStatus != 0 {
			w.WriteHeader(s.HeadStatus)
			return
		}
		if _, ok := s.users[seg[1]]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)

	// PUT /users/{email}
	case r.Method == http.MethodPut && len(seg) == 2 && seg[0] == "users":
		if !strings.Contains(seg[1], "@") {
			writeMessage(w, http.StatusBadRequest, "username must contain a domain part")
			return
		}
		var req struct {
			Password string `json:"password"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.Password == "" {
			writeMessage(w, http.StatusBadRequest, "invalid password body")
			return
		}
		s.users[seg[1]] = req.Password
		w.WriteHeader(http.StatusNoContent)

	// DELETE /users/{email}
	case r.Method == http.MethodDelete && len(seg) == 2 && seg[0] == "users":
		delete(s.users, seg[1])
		w.WriteHeader(http.StatusNoContent)

	// GET /users/{email}/identities?default=true
	case r.Method == http.MethodGet && len(seg) == 3 && seg[0] == "users" && seg[2] == "identities":
		ids := s.identities[seg[1]]
		if r.URL.Query().Get("default") == "true" && len(ids) > 0 {
			ids = ids[:1]
		}
		if ids == nil {
			ids = []james.Identity{}
		}
		writeJSON(w, http.StatusOK, ids)

	// POST /users/{email}/identities
	case r.Method == http.MethodPost && len(seg) == 3 && seg[0] == "users" && seg[2] == "identities":
		var identity james.Identity
		if err := json.Unmarshal(body, &identity); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid identity")
			return
		}
		s.identities[seg[1]] = append(s.identities[seg[1]], identity)
		w.WriteHeader(http.StatusCreated)

	// GET /address/aliases, /address/forwards
	case r.Method == http.MethodGet && len(seg) == 2 && seg[0] == "address":
		store := s.addressStore(seg[1])
		if store == nil {
			writeMessage(w, http.StatusNotFound, "unknown resource")
			return
		}
		var users []string
		for _, u := range sortedKeys(store) {
			if len(store[u]) > 0 {
				users = append(users, u)
			}
		}
		if users == nil {
			users = []string{}
		}
		writeJSON(w, http.StatusOK, users)

	// GET /address/aliases/{email}
	case r.Method == http.MethodGet && len(seg) == 3 && seg[0] == "address" && seg[1] == "aliases":
		out := []james.Alias{}
		for _, a := range s.aliases[seg[2]] {
			out = append(out, james.Alias{Source: a})
		}
		writeJSON(w, http.StatusOK, out)

	// GET /address/forwards/{email}
	case r.Method == http.MethodGet && len(seg) == 3 && seg[0] == "address" && seg[1] == "forwards":
		fwds := s.forwards[seg[2]]
		if len(fwds) == 0 {
			writeMessage(w, http.StatusNotFound, "The requested forward address does not exist")
			return
		}
		out := make([]james.Forward, 0, len(fwds))
		for _, f := range fwds {
			out = append(out, james.Forward{MailAddress: f})
		}
		writeJSON(w, http.StatusOK, out)

	// PUT|DELETE /address/aliases/{email}/sources/{alias}, /address/forwards/{email}/targets/{addr}
	case (r.Method == http.MethodPut || r.Method == http.MethodDelete) && len(seg) == 5 && seg[0] == "address":
		store := s.addressStore(seg[1])
		if store == nil {
			writeMessage(w, http.StatusNotFound, "unknown resource")
			return
		}
		if r.Method == http.MethodPut {
			if !slices.Contains(store[seg[2]], seg[4]) {
				store[seg[2]] = append(store[seg[2]], seg[4])
			}
		} else {
			store[seg[2]] = slices.DeleteFunc(store[seg[2]], func(v string) bool { return v == seg[4] })
		}
		w.WriteHeader(http.StatusNoContent)

	// GET /mappings/user/{email}
	case r.Method == http.MethodGet && len(seg) == 3 && seg[0] == "mappings" && seg[1] == "user":
		out := []map[string]string{}
		for _, m := range s.mappings[seg[2]] {
			out = append(out, map[string]string{"type": m.Type, "mapping": m.Mapping})
		}
		writeJSON(w, http.StatusOK, out)

	// POST|DELETE /mappings/address/{email}/targets/{mapping}
	case (r.Method == http.MethodPost || r.Method == http.MethodDelete) && len(seg) == 5 && seg[0] == "mappings" && seg[1] == "address":
		m := Mapping{Type: james.MappingTypeAddress, Mapping: seg[4]}
		if r.Method == http.MethodPost {
			if !slices.Contains(s.mappings[seg[2]], m) {
				s.mappings[seg[2]] = append(s.mappings[seg[2]], m)
			}
		} else {
			s.mappings[seg[2]] = slices.DeleteFunc(s.mappings[seg[2]], func(v Mapping) bool { return v == m })
		}
		w.WriteHeader(http.StatusNoContent)

	// GET|PUT|DELETE /quota/users/{email}/size
	case len(seg) == 4 && seg[0] == "quota" && seg[1] == "users" && seg[3] == "size":
		s.handleQuota(w, r.Method, seg[2], body)

	// GET /domains/contacts/all
	case r.Method == http.MethodGet && len(seg) == 3 && seg[0] == "domains" && seg[1] == "contacts" && seg[2] == "all":
		out := sortedKeys(s.contacts)
		if out == nil {
			out = []string{}
		}
		writeJSON(w, http.StatusOK, out)

	// POST /domains/{domain}/contacts
	case r.Method == http.MethodPost && len(seg) == 3 && seg[0] == "domains" && seg[2] == "contacts":
		var contact james.Contact
		if err := json.Unmarshal(body, &contact); err != nil || !strings.HasSuffix(contact.EmailAddress, "@"+seg[1]) {
			writeMessage(w, http.StatusBadRequest, "invalid contact")
			return
		}
		s.contacts[contact.EmailAddress] = contact
		writeJSON(w, http.StatusCreated, map[string]string{"id": "contact-" + strconv.Itoa(len(s.contacts))})

	// GET|PUT|DELETE /domains/{domain}/contacts/{localpart}
	case len(seg) == 4 && seg[0] == "domains" && seg[2] == "contacts":
		s.handleContact(w, r.Method, seg[3]+"@"+seg[1], body)

	default:
		writeMessage(w, http.StatusNotFound, "not found: "+r.URL.Path)
	}
}

func (s *Server) addressStore(kind string) map[string][]string {
	switch kind {
	case "aliases":
		return s.aliases
	case "forwards":
		return s.forwards
	default:
		return nil
	}
}

func (s *Server) handleQuota(w http.ResponseWriter, method, email string, body []byte) {
	switch method {
	case http.MethodGet:
		q, ok := s.quotas[email]
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, q)
	case http.MethodPut:
		q, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
		if err != nil || q < -1 {
			writeMessage(w, http.StatusBadRequest, "invalid quota size")
			return
		}
		s.quotas[email] = q
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		delete(s.quotas, email)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleContact(w http.ResponseWriter, method, email string, body []byte) {
	switch method {
	case http.MethodGet:
		c, ok := s.contacts[email]
		if !ok {
			writeMessage(w, http.StatusNotFound, "contact not found")
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		c, ok := s.contacts[email]
		if !ok {
			writeMessage(w, http.StatusNotFound, "contact not found")
			return
		}
		var names james.ContactNames
		if err := json.Unmarshal(body, &names); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid names")
			return
		}
		if names.Firstname != nil {
			c.Firstname = names.Firstname
		}
		if names.Surname != nil {
			c.Surname = names.Surname
		}
		s.contacts[email] = c
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		delete(s.contacts, email)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
