// Package apitest runs an in-memory logistics backend for tests.
package apitest

import (
	"cmp"
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var secret = []byte("apitest-secret")

// Account is a seeded login.
type Account struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
}

var (
	Admin    = Account{ID: "u-admin", Name: "Ana Admin", Email: "admin@puerto.co", Password: "secret1", Role: "admin"}
	Employee = Account{ID: "u-emp", Name: "Elena Empleada", Email: "empleado@puerto.co", Password: "secret2", Role: "empleado"}
	Client   = Account{ID: "u-cli", Name: "Carlos Cliente", Email: "cliente@puerto.co", Password: "secret3", Role: "cliente"}
)

type failure struct {
	status  int
	message string
	fields  map[string]string
}

// Server is a fake backend. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]*Account
	data      map[string][]map[string]any
	stats     map[string]map[string]any
	failures  map[string]failure
	requests  []string
	hook      func(*gin.Context)
	tokenTTL  time.Duration
	revoked   map[string]bool
	lastQuery map[string]map[string]string
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		accounts:  map[string]*Account{},
		data:      map[string][]map[string]any{},
		stats:     map[string]map[string]any{},
		failures:  map[string]failure{},
		tokenTTL:  24 * time.Hour,
		revoked:   map[string]bool{},
		lastQuery: map[string]map[string]string{},
	}
	for _, a := range []Account{Admin, Employee, Client} {
		acc := a
		s.accounts[acc.Email] = &acc
	}

	r := gin.New()
	r.Use(s.record)

	api := r.Group("/api")
	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)

	authed := api.Group("", s.auth)
	authed.GET("/auth/me", s.me)
	authed.GET("/auth/verify-token", s.me)
	authed.POST("/auth/logout", s.logout)
	authed.PUT("/auth/profile", s.updateProfile)
	authed.PUT("/auth/change-password", s.changePassword)
	authed.GET("/exportar/:resource", s.export)
	authed.GET("/:resource", s.list)
	authed.POST("/:resource", s.create)
	authed.GET("/:resource/stats/:name", s.statsHandler)
	authed.GET("/:resource/:id", s.get)
	authed.PUT("/:resource/:id", s.update)
	authed.DELETE("/:resource/:id", s.remove)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Seed appends records to a resource, assigning ids and createdAt where
// missing.
func (s *Server) Seed(resource string, records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, rec := range records {
		cp := maps.Clone(rec)
		if _, ok := cp["_id"]; !ok {
			cp["_id"] = uuid.NewString()
		}
		if _, ok := cp["createdAt"]; !ok {
			cp["createdAt"] = base.Add(time.Duration(len(s.data[resource])) * time.Hour).Format(time.RFC3339)
		}
		s.data[resource] = append(s.data[resource], cp)
	}
}

// Records returns a copy of a resource's records.
func (s *Server) Records(resource string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.data[resource])
}

func cloneAll(items []map[string]any) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, rec := range items {
		out[i] = maps.Clone(rec)
	}
	return out
}

// SetStats fixes the payload of GET /api/{resource}/stats/*.
func (s *Server) SetStats(resource string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[resource] = payload
}

// Fail makes every request whose path starts with prefix fail.
func (s *Server) Fail(prefix string, status int, message string, fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = failure{status: status, message: message, fields: fields}
}

// ClearFailures removes every failure set by Fail.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]failure{}
}

// SetHook runs fn at the start of every request.
func (s *Server) SetHook(fn func(*gin.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// SetTokenTTL changes the lifetime of tokens issued from now on.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = d
}

// Requests returns "METHOD /path" for every request served.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Count returns how many requests matched method and path prefix.
func (s *Server) Count(method, prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		m, p, _ := strings.Cut(r, " ")
		if (method == "" || m == method) && strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// LastQuery returns the query parameters of the last list call on resource.
func (s *Server) LastQuery(resource string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery[resource]
}

// Token issues a valid token for a seeded account.
func (s *Server) Token(a Account) string {
	s.mu.Lock()
	ttl := s.tokenTTL
	s.mu.Unlock()
	tok, _ := sign(a, ttl)
	return tok
}

func sign(a Account, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": a.ID,
		"role":    a.Role,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, c.Request.Method+" "+c.Request.URL.Path)
	hook := s.hook
	var fail *failure
	for prefix, f := range s.failures {
		if strings.HasPrefix(c.Request.URL.Path, prefix) {
			ff := f
			fail = &ff
			break
		}
	}
	s.mu.Unlock()

	if hook != nil {
		hook(c)
	}
	if fail != nil {
		body := gin.H{"success": false, "message": fail.message}
		if fail.fields != nil {
			body["errors"] = fail.fields
		}
		c.AbortWithStatusJSON(fail.status, body)
		return
	}
	c.Next()
}

func (s *Server) auth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Token requerido"})
		return
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Token inválido"})
		return
	}
	claims, _ := tok.Claims.(jwt.MapClaims)
	id, _ := claims["user_id"].(string)

	s.mu.Lock()
	revoked := s.revoked[raw]
	acc := s.accountByID(id)
	s.mu.Unlock()
	if revoked || acc == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Sesión cerrada"})
		return
	}
	c.Set("account", acc)
	c.Set("token", raw)
	c.Next()
}

func (s *Server) accountByID(id string) *Account {
	for _, a := range s.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func userJSON(a *Account) gin.H {
	return gin.H{"_id": a.ID, "nombre": a.Name, "email": a.Email, "rol": a.Role}
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "payload inválido"})
		return
	}
	s.mu.Lock()
	acc := s.accounts[req.Email]
	ttl := s.tokenTTL
	s.mu.Unlock()
	if acc == nil || acc.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Credenciales inválidas"})
		return
	}
	tok, err := sign(*acc, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": tok, "user": userJSON(acc)})
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Nombre   string `json:"nombre"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "payload inválido"})
		return
	}
	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "El usuario ya existe",
			"errors": gin.H{"email": "ya registrado"}})
		return
	}
	acc := &Account{ID: uuid.NewString(), Name: req.Nombre, Email: req.Email, Password: req.Password, Role: "cliente"}
	s.accounts[acc.Email] = acc
	ttl := s.tokenTTL
	s.mu.Unlock()

	tok, _ := sign(*acc, ttl)
	c.JSON(http.StatusCreated, gin.H{"success": true, "token": tok, "user": userJSON(acc)})
}

func (s *Server) me(c *gin.Context) {
	acc := c.MustGet("account").(*Account)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userJSON(acc)})
}

func (s *Server) logout(c *gin.Context) {
	s.mu.Lock()
	s.revoked[c.GetString("token")] = true
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) updateProfile(c *gin.Context) {
	acc := c.MustGet("account").(*Account)
	var req struct {
		Nombre string `json:"nombre"`
		Email  string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "payload inválido"})
		return
	}
	s.mu.Lock()
	delete(s.accounts, acc.Email)
	acc.Name, acc.Email = req.Nombre, req.Email
	s.accounts[acc.Email] = acc
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": userJSON(acc)})
}

func (s *Server) changePassword(c *gin.Context) {
	acc := c.MustGet("account").(*Account)
	var req struct {
		Current string `json:"currentPassword"`
		New     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "payload inválido"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.Password != req.Current {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "La contraseña actual es incorrecta",
			"errors": gin.H{"currentPassword": "incorrecta"}})
		return
	}
	acc.Password = req.New
	c.JSON(http.StatusOK, gin.H{"success": true})
}

var reserved = map[string]bool{"page": true, "limit": true, "q": true, "search": true, "sort": true}

func (s *Server) list(c *gin.Context) {
	resource := c.Param("resource")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := map[string]string{}
	for k, v := range c.Request.URL.Query() {
		query[k] = v[0]
	}

	s.mu.Lock()
	s.lastQuery[resource] = query
	items := cloneAll(s.data[resource])
	s.mu.Unlock()

	q := strings.ToLower(c.Query("q"))
	if q == "" {
		q = strings.ToLower(c.Query("search"))
	}
	filtered := items[:0:0]
	for _, rec := range items {
		if q != "" && !matchesText(rec, q) {
			continue
		}
		ok := true
		for k, v := range query {
			if reserved[k] {
				continue
			}
			if fmt.Sprint(rec[k]) != v {
				ok = false
				break
			}
		}
		if ok {
			filtered = append(filtered, rec)
		}
	}

	if sortKey := c.Query("sort"); sortKey != "" {
		desc := strings.HasPrefix(sortKey, "-")
		sortKey = strings.TrimPrefix(sortKey, "-")
		slices.SortStableFunc(filtered, func(a, b map[string]any) int {
			r := cmp.Compare(fmt.Sprint(a[sortKey]), fmt.Sprint(b[sortKey]))
			if desc {
				return -r
			}
			return r
		})
	}

	total := len(filtered)
	from := min((page-1)*limit, total)
	to := min(from+limit, total)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"items": filtered[from:to], "total": total}})
}

func matchesText(rec map[string]any, q string) bool {
	for _, v := range rec {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func (s *Server) find(resource, id string) (int, map[string]any) {
	for i, rec := range s.data[resource] {
		if fmt.Sprint(rec["_id"]) == id {
			return i, rec
		}
	}
	return -1, nil
}

func (s *Server) get(c *gin.Context) {
	s.mu.Lock()
	_, rec := s.find(c.Param("resource"), c.Param("id"))
	rec = maps.Clone(rec)
	s.mu.Unlock()
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (s *Server) create(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "payload inválido"})
		return
	}
	body["_id"] = uuid.NewString()
	body["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	s.mu.Lock()
	s.data[c.Param("resource")] = append(s.data[c.Param("resource")], maps.Clone(body))
	s.mu.Unlock()
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": body})
}

func (s *Server) update(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "payload inválido"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec := s.find(c.Param("resource"), c.Param("id"))
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No encontrado"})
		return
	}
	for k, v := range body {
		if k != "_id" {
			rec[k] = v
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": maps.Clone(rec)})
}

func (s *Server) remove(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resource := c.Param("resource")
	i, _ := s.find(resource, c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No encontrado"})
		return
	}
	s.data[resource] = slices.Delete(s.data[resource], i, i+1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) statsHandler(c *gin.Context) {
	resource := c.Param("resource")
	s.mu.Lock()
	payload, ok := s.stats[resource]
	n := len(s.data[resource])
	s.mu.Unlock()
	if !ok {
		payload = map[string]any{"total": n}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": payload})
}

func (s *Server) export(c *gin.Context) {
	s.mu.Lock()
	items := cloneAll(s.data[c.Param("resource")])
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}
