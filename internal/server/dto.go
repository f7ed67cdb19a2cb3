package server

type PricesResponse struct {
	Prices map[string]float64 `json:"prices"`
	Count  int                `json:"count"`
}

type PriceResponse struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Source    string  `json:"source"` // "hub" or "cache"
	UpdatedAt string  `json:"updated_at,omitempty"`
}

type ArticleResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	URL          string `json:"url"`
	ImageURL     string `json:"image_url,omitempty"`
	Source       string `json:"source"`
	PublishedAt  string `json:"published_at"`
	RelativeTime string `json:"relative_time"`
}

type NewsResponse struct {
	Articles []ArticleResponse `json:"articles"`
	Count    int               `json:"count"`
	Limit    int               `json:"limit"`
}

type HealthResponse struct {
	Status     string                 `json:"status"` // healthy, degraded or unhealthy
	Version    string                 `json:"version"`
	Components map[string]interface{} `json:"components"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
