// Package tool provides the weather lookup tool.
package tool

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const defaultWeatherURL = "https://wttr.in"

// Weather fetches current weather details for a city from the wttr.in API.
type Weather struct {
	client  *Client
	baseURL string
}

// NewWeather creates the weather lookup tool.
func NewWeather(client *Client) *Weather {
	return &Weather{client: client, baseURL: defaultWeatherURL}
}

func (t *Weather) Name() string { return "get_weather" }

func (t *Weather) Description() string {
	return "Get current weather details for a city"
}

func (t *Weather) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	start := time.Now()

	city, ok := input["city"].(string)
	if !ok || city == "" {
		return TimedResult(NewErrorResult(fmt.Errorf("city is required")), start), nil
	}

	var data wttrResponse
	lookupURL := fmt.Sprintf("%s/%s?format=j1", t.baseURL, url.PathEscape(city))
	if err := t.client.GetJSON(ctx, lookupURL, nil, &data); err != nil {
		return TimedResult(NewErrorResult(fmt.Errorf("weather lookup failed: %w", err)), start), nil
	}

	if len(data.CurrentCondition) == 0 {
		return TimedResult(NewErrorResult(fmt.Errorf("no weather data found for %q", city)), start), nil
	}

	cond := data.CurrentCondition[0]
	description := ""
	if len(cond.WeatherDesc) > 0 {
		description = cond.WeatherDesc[0].Value
	}

	details := fmt.Sprintf(
		"Weather details for %s:\n"+
			"Temperature (C): %s\n"+
			"Temperature (F): %s\n"+
			"Humidity: %s%%\n"+
			"Description: %s\n"+
			"Wind Speed: %s km/h (%s mph)",
		city, cond.TempC, cond.TempF, cond.Humidity, description,
		cond.WindSpeedKmph, cond.WindSpeedMiles)

	return TimedResult(NewSuccessResult(details), start), nil
}

// ============================================================
// wttr.in API Types
// ============================================================

type wttrResponse struct {
	CurrentCondition []struct {
		TempC          string `json:"temp_C"`
		TempF          string `json:"temp_F"`
		Humidity       string `json:"humidity"`
		WindSpeedKmph  string `json:"windspeedKmph"`
		WindSpeedMiles string `json:"windspeedMiles"`
		WeatherDesc    []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}
