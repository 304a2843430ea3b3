package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	defaultPort      = "8082"
	defaultAPIKey    = "balance-api-secret-key"
	defaultLatencyMs = "50"
	lookupPath       = "/v3/query-inss-balances/finder/await"
)

type LookupRequest struct {
	Identity      string `json:"identity"`
	BenefitNumber string `json:"benefitNumber"`
	LastDays      int    `json:"lastDays"`
	Attempts      int    `json:"attemps"`
}

type BankAccount struct {
	Bank   string `json:"bank"`
	Branch string `json:"branch"`
	Number string `json:"number"`
	Digit  string `json:"digit"`
}

// LookupResponse mirrors the upstream body. Dates are DDMMYYYY and amounts
// are strings, as the real service sends them.
type LookupResponse struct {
	Name                                string       `json:"name"`
	State                               string       `json:"state"`
	Alimony                             string       `json:"alimony"`
	BirthDate                           string       `json:"birthDate"`
	BlockType                           string       `json:"blockType"`
	GrantDate                           string       `json:"grantDate"`
	CreditType                          string       `json:"creditType"`
	BenefitCardLimit                    string       `json:"benefitCardLimit"`
	BenefitCardBalance                  string       `json:"benefitCardBalance"`
	ConsignedCardLimit                  string       `json:"consignedCardLimit"`
	ConsignedCardBalance                string       `json:"consignedCardBalance"`
	BenefitStatus                       string       `json:"benefitStatus"`
	BenefitEndDate                      string       `json:"benefitEndDate"`
	ConsignedCreditBalance              string       `json:"consignedCreditBalance"`
	MaxTotalBalance                     string       `json:"maxTotalBalance"`
	UsedTotalBalance                    string       `json:"usedTotalBalance"`
	QueryDate                           string       `json:"queryDate"`
	QueryReturnDate                     string       `json:"queryReturnDate"`
	QueryReturnTime                     string       `json:"queryReturnTime"`
	LegalRepresentativeName             string       `json:"legalRepresentativeName"`
	DisbursementBankAccount             *BankAccount `json:"disbursementBankAccount"`
	NumberOfActiveSuspendedReservations int          `json:"numberOfActiveSuspendedReservations"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var (
	apiKey    = getEnv("API_KEY", defaultAPIKey)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

	// lookups counts accepted lookups so tests can assert how often the
	// service reached out.
	lookups atomic.Int64
	// flaky counts calls for FLAKY documents.
	flaky atomic.Int64
)

// Magic documents let e2e tests drive the mock's behavior.
const (
	docUnmatched   = "00000000000" // answers 200 with an empty name
	docUnavailable = "99999999999" // always 503
	docFlaky       = "11111111111" // 503 on the first call of every pair
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/stats", handleStats)
	http.HandleFunc(lookupPath, handleLookup)

	log.Printf("🏦 Mock Balance API starting on port %s", port)
	log.Printf("📝 API Key: %s", apiKey)
	log.Printf("⏱️  Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "balance-api",
		"version": "1.0.0",
	})
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"lookups": lookups.Load()})
}

func handleLookup(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	log.Printf("📥 Incoming request: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if key := r.Header.Get("apiKey"); key == "" {
		sendError(w, "Missing apiKey header", http.StatusUnauthorized)
		return
	} else if key != apiKey {
		sendError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Identity == "" || req.BenefitNumber == "" {
		sendError(w, "identity and benefitNumber are required", http.StatusBadRequest)
		return
	}
	lookups.Add(1)

	switch req.Identity {
	case docUnavailable:
		sendError(w, "Upstream registry unavailable", http.StatusServiceUnavailable)
		return
	case docFlaky:
		if flaky.Add(1)%2 == 1 {
			sendError(w, "Upstream registry busy", http.StatusServiceUnavailable)
			return
		}
	case docUnmatched:
		writeJSON(w, http.StatusOK, LookupResponse{})
		log.Printf("🔍 No beneficiary for identity %s", req.Identity)
		return
	}

	resp := generateBalance(req)
	writeJSON(w, http.StatusOK, resp)
	log.Printf("✅ Balance lookup successful: %s/%s -> %s", req.Identity, req.BenefitNumber, resp.Name)
}

func generateBalance(req LookupRequest) LookupResponse {
	hash := sha256.Sum256([]byte(req.Identity + ":" + req.BenefitNumber))
	h := int(hash[0])

	firstNames := []string{"Ana", "Bruno", "Carla", "Diego", "Elisa", "Fabio", "Gisele", "Hugo", "Iara", "Joao"}
	lastNames := []string{"Silva", "Santos", "Oliveira", "Souza", "Lima", "Pereira", "Costa", "Ferreira", "Almeida", "Ribeiro"}
	states := []string{"SP", "RJ", "MG", "BA", "RS", "PR", "PE", "CE", "PA", "SC"}

	now := time.Now()
	limit := 1000 + h*10
	used := (h * 7) % limit

	return LookupResponse{
		Name:                   fmt.Sprintf("%s %s", firstNames[h%len(firstNames)], lastNames[(h*3)%len(lastNames)]),
		State:                  states[(h*2)%len(states)],
		Alimony:                "nao",
		BirthDate:              fmt.Sprintf("%02d%02d%04d", 1+h%28, 1+h%12, 1940+h%40),
		BlockType:              "nao_bloqueado",
		GrantDate:              fmt.Sprintf("%02d%02d%04d", 1+(h*5)%28, 1+(h*5)%12, 2000+h%20),
		CreditType:             "conta_corrente",
		BenefitCardLimit:       strconv.Itoa(limit),
		BenefitCardBalance:     strconv.Itoa(limit - used),
		ConsignedCardLimit:     strconv.Itoa(limit / 2),
		ConsignedCardBalance:   strconv.Itoa((limit - used) / 2),
		BenefitStatus:          "ativo",
		ConsignedCreditBalance: strconv.Itoa(limit * 3),
		MaxTotalBalance:        strconv.Itoa(limit * 4),
		UsedTotalBalance:       strconv.Itoa(used),
		QueryDate:              now.Format("02012006"),
		QueryReturnDate:        now.Format("02012006"),
		QueryReturnTime:        now.Format("15:04:05"),
		DisbursementBankAccount: &BankAccount{
			Bank:   fmt.Sprintf("%03d", 1+h%300),
			Branch: fmt.Sprintf("%04d", 1000+h),
			Number: fmt.Sprintf("%08d", h*12345),
			Digit:  strconv.Itoa(h % 10),
		},
		NumberOfActiveSuspendedReservations: h % 3,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
	log.Printf("❌ Error response: %d - %s", code, message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️  Invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
