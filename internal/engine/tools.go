package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ctxlab/internal/events"
	"ctxlab/internal/types"
)

// ToolContext gives a handler access to the active query so tools with
// their own event semantics (skill loading) can record them.
type ToolContext struct {
	QueryID string
	Logger  *events.Logger
}

// ToolHandler executes one tool call and returns its result text.
type ToolHandler func(ctx context.Context, call ToolContext, params map[string]any) string

// toolEntry pairs a tool's declaration with its handler. Tools that
// record their own events set logsSelf so the runner skips the generic
// tool_called record.
type toolEntry struct {
	def      types.ToolDefinition
	handler  ToolHandler
	logsSelf bool
}

// HTTPFetchTool fetches a URL via GET. Failures come back as JSON error
// strings in the tool result, not Go errors; the model handles them.
func HTTPFetchTool() toolEntry {
	client := &http.Client{Timeout: 10 * time.Second}
	return toolEntry{
		def: types.ToolDefinition{
			Name:        "http_fetch",
			Description: "Fetch data from a URL via HTTP GET. Use for weather API calls.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{"type": "string", "description": "The URL to fetch"},
				},
				"required": []any{"url"},
			},
		},
		handler: func(ctx context.Context, _ ToolContext, params map[string]any) string {
			url, _ := params["url"].(string)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return jsonError(fmt.Sprintf("Request failed: %v", err))
			}
			resp, err := client.Do(req)
			if err != nil {
				return jsonError(fmt.Sprintf("Request failed: %v", err))
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return jsonError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return jsonError(fmt.Sprintf("Request failed: %v", err))
			}
			return string(body)
		},
	}
}

// MockAPIFetchTool serves canned travel data so queries are reproducible
// without live backends. Endpoints: flights, hotels, activities,
// currency, visa.
func MockAPIFetchTool() toolEntry {
	return toolEntry{
		def: types.ToolDefinition{
			Name:        "mock_api_fetch",
			Description: "Query travel data APIs (flights, hotels, activities, currency, visa).",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"endpoint": map[string]any{"type": "string", "description": "API endpoint name: flights, hotels, activities, currency, visa"},
					"params":   map[string]any{"type": "object", "description": "Query parameters"},
				},
				"required": []any{"endpoint"},
			},
		},
		handler: func(_ context.Context, _ ToolContext, params map[string]any) string {
			endpoint, _ := params["endpoint"].(string)
			query, _ := params["params"].(map[string]any)
			return mockAPIFetch(endpoint, query)
		},
	}
}

// DatetimeTool reports the current date and time in a given timezone.
func DatetimeTool() toolEntry {
	return toolEntry{
		def: types.ToolDefinition{
			Name:        "get_current_datetime",
			Description: "Get current date, time, and day of week for a timezone.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"timezone": map[string]any{"type": "string", "description": "IANA timezone identifier, e.g. 'UTC', 'America/New_York', 'Asia/Tokyo'"},
				},
			},
		},
		handler: func(_ context.Context, _ ToolContext, params map[string]any) string {
			name, _ := params["timezone"].(string)
			if name == "" {
				name = "UTC"
			}
			loc, err := time.LoadLocation(name)
			if err != nil {
				return jsonError(fmt.Sprintf("Unknown timezone: %s. Use IANA timezone identifiers like 'UTC', 'America/New_York', 'Asia/Tokyo'.", name))
			}
			now := time.Now().In(loc)
			return mustJSON(map[string]any{
				"date":        now.Format("2006-01-02"),
				"time":        now.Format("15:04"),
				"day_of_week": now.Format("Monday"),
				"timezone":    name,
				"utc_offset":  now.Format("-0700"),
				"iso":         now.Format(time.RFC3339),
			})
		},
	}
}

func mockAPIFetch(endpoint string, params map[string]any) string {
	switch endpoint {
	case "flights":
		return mustJSON(map[string]any{
			"results": []map[string]any{
				{"airline": "United Airlines", "flight_number": "UA 234", "departure_time": "08:00 AM", "arrival_time": "11:30 AM", "duration": "5h 30m", "price": 299, "stops": 0},
				{"airline": "Delta", "flight_number": "DL 567", "departure_time": "02:15 PM", "arrival_time": "05:45 PM", "duration": "5h 30m", "price": 325, "stops": 0},
				{"airline": "American Airlines", "flight_number": "AA 891", "departure_time": "06:00 AM", "arrival_time": "01:30 PM", "duration": "9h 30m", "price": 189, "stops": 1},
			},
			"query": params,
		})
	case "hotels":
		return mustJSON(map[string]any{
			"results": []map[string]any{
				{"name": "Grand Hotel Central", "rating": 4, "review_score": 8.7, "price_per_night": 185, "location": "City Center", "amenities": []string{"Free WiFi", "Breakfast included", "Fitness center"}, "distance_to_center": "0.3 km"},
				{"name": "Comfort Inn Downtown", "rating": 3, "review_score": 7.9, "price_per_night": 95, "location": "Downtown", "amenities": []string{"Free WiFi", "Parking", "24h reception"}, "distance_to_center": "1.1 km"},
				{"name": "Luxury Palace Hotel", "rating": 5, "review_score": 9.4, "price_per_night": 450, "location": "Historic District", "amenities": []string{"Spa", "Rooftop pool", "Fine dining", "Concierge"}, "distance_to_center": "0.5 km"},
			},
			"query": params,
		})
	case "activities":
		category, _ := params["category"].(string)
		if category == "restaurants" {
			return mustJSON(map[string]any{
				"results": []map[string]any{
					{"name": "La Trattoria Bella", "type": "Italian restaurant", "rating": 4.6, "review_count": 1243, "price_range": "$$", "description": "Authentic Italian cuisine with handmade pasta"},
					{"name": "Sakura Sushi", "type": "Japanese restaurant", "rating": 4.8, "review_count": 892, "price_range": "$$$", "description": "Premium omakase and fresh sashimi"},
				},
				"query": params,
			})
		}
		return mustJSON(map[string]any{
			"results": []map[string]any{
				{"name": "National Museum", "type": "Museum", "rating": 4.7, "review_count": 15420, "price_range": "$15 entry", "duration": "2-3 hours", "description": "World-class art and historical exhibits"},
				{"name": "Historic Walking Tour", "type": "Guided tour", "rating": 4.9, "review_count": 3200, "price_range": "$25 per person", "duration": "3 hours", "description": "Expert-led tour of historic landmarks"},
				{"name": "Central Park", "type": "Park", "rating": 4.8, "review_count": 45000, "price_range": "Free", "duration": "1-4 hours", "description": "Iconic urban park perfect for walking and picnics"},
			},
			"query": params,
		})
	case "currency":
		// Static rates for reproducibility.
		rates := map[[2]string]float64{
			{"USD", "EUR"}: 0.92, {"USD", "GBP"}: 0.79, {"USD", "JPY"}: 149.50,
			{"EUR", "USD"}: 1.09, {"EUR", "GBP"}: 0.86,
			{"GBP", "USD"}: 1.27, {"GBP", "EUR"}: 1.16,
			{"JPY", "USD"}: 0.0067,
		}
		from := stringParam(params, "from", "USD")
		to := stringParam(params, "to", "EUR")
		amount := floatParam(params, "amount", 100)
		rate, ok := rates[[2]string{from, to}]
		if !ok {
			rate = 1.0
		}
		return mustJSON(map[string]any{
			"from_currency": from,
			"to_currency":   to,
			"amount":        amount,
			"rate":          rate,
			"converted":     float64(int(amount*rate*100+0.5)) / 100,
			"updated_at":    "2024-03-15T12:00:00Z",
		})
	case "visa":
		destination, _ := params["destination"].(string)
		visaFree := map[string]bool{
			"japan": true, "uk": true, "france": true, "germany": true,
			"italy": true, "spain": true, "canada": true, "mexico": true,
		}
		if visaFree[strings.ToLower(destination)] {
			return mustJSON(map[string]any{
				"visa_required":    false,
				"duration_allowed": "90 days",
				"documents_needed": []string{"Valid passport", "Return ticket", "Proof of accommodation"},
				"notes":            "Passport must be valid for at least 6 months beyond travel dates",
			})
		}
		return mustJSON(map[string]any{
			"visa_required":    true,
			"visa_type":        "Tourist Visa",
			"duration_allowed": "30 days",
			"validity":         "6 months",
			"processing_time":  "5-10 business days",
			"documents_needed": []string{"Valid passport", "Completed application form", "Passport photo", "Proof of travel itinerary", "Bank statements"},
			"cost":             "$50-100",
			"notes":            "Apply at least 2 weeks before travel",
		})
	default:
		return mustJSON(map[string]any{
			"error":               fmt.Sprintf("Unknown endpoint: %s", endpoint),
			"available_endpoints": []string{"flights", "hotels", "activities", "currency", "visa"},
		})
	}
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatParam(params map[string]any, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

func jsonError(message string) string {
	return mustJSON(map[string]any{"error": message})
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
