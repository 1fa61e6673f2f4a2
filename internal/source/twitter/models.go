package twitter

// TimelineResponse is the users-timeline payload.
type TimelineResponse struct {
	Data     []APITweet `json:"data"`
	Meta     Meta       `json:"meta"`
	Includes *Includes  `json:"includes"`
}

type Meta struct {
	NewestID    string `json:"newest_id"`
	OldestID    string `json:"oldest_id"`
	ResultCount int    `json:"result_count"`
}

type APITweet struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	CreatedAt   string       `json:"created_at"`
	Attachments *Attachments `json:"attachments"`
}

type Attachments struct {
	MediaKeys []string `json:"media_keys"`
}

type Includes struct {
	Media []Media `json:"media"`
}

type Media struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	PreviewImageURL string `json:"preview_image_url"`
}

// problem is the error body returned on non-2xx responses.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}
