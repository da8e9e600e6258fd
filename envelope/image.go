package envelope

// ImageRequest is the request body sent to the external image service.
type ImageRequest struct {
	ID       string  `json:"id"`
	TimeSec  int64   `json:"time_sec"`
	Fraction int64   `json:"fraction"`
	Width    *int    `json:"width,omitempty"`
	Height   *int    `json:"height,omitempty"`
	URL      *string `json:"url,omitempty"`
	Name     *string `json:"name,omitempty"`
}

// ImageResponse is the expected successful response body.
type ImageResponse struct {
	Image string `json:"image"`
}

// NewImageRequest builds an ImageRequest for sensorID from a well-formed
// @timestamp string.
func NewImageRequest(sensorID, timestamp string) (ImageRequest, error) {
	sec, frac, err := SplitTimestamp(timestamp)
	if err != nil {
		return ImageRequest{}, err
	}
	return ImageRequest{
		ID:       sensorID,
		TimeSec:  sec,
		Fraction: frac,
	}, nil
}
