package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ListVectorSpeakers returns every speaker in the vector index with its
// stored voice samples.
func (c *Client) ListVectorSpeakers(ctx context.Context) ([]VectorSpeaker, error) {
	var res VectorSpeakers
	if err := c.do(ctx, http.MethodGet, c.endpoint("api", "pinecone", "speakers"), nil, "", "Failed to load index speakers", &res); err != nil {
		return nil, fmt.Errorf("list index speakers: %w", err)
	}
	return res.Speakers, nil
}

// AddVectorSpeaker creates a speaker in the index from one audio sample.
func (c *Client) AddVectorSpeaker(ctx context.Context, name, audioPath string) (EmbeddingResult, error) {
	var res EmbeddingResult
	fields := []formField{{"speaker_name", name}}
	endpoint := c.endpoint("api", "pinecone", "speakers")
	if err := c.sendMultipart(ctx, http.MethodPost, endpoint, fields, filePart{field: "audio_file", path: audioPath}, nil, "Unknown error adding speaker", &res); err != nil {
		return EmbeddingResult{}, fmt.Errorf("add index speaker: %w", err)
	}
	return res, nil
}

// AddVectorEmbedding stores another voice sample for an existing speaker.
func (c *Client) AddVectorEmbedding(ctx context.Context, name, audioPath string) (EmbeddingResult, error) {
	var res EmbeddingResult
	fields := []formField{{"speaker_name", name}}
	endpoint := c.endpoint("api", "pinecone", "embeddings")
	if err := c.sendMultipart(ctx, http.MethodPost, endpoint, fields, filePart{field: "audio_file", path: audioPath}, nil, "Unknown error adding embedding", &res); err != nil {
		return EmbeddingResult{}, fmt.Errorf("add index embedding: %w", err)
	}
	return res, nil
}

// DeleteVectorSpeaker removes a speaker and all of its samples from the index.
func (c *Client) DeleteVectorSpeaker(ctx context.Context, name string) (VectorDeleteResult, error) {
	var res VectorDeleteResult
	if err := c.do(ctx, http.MethodDelete, c.endpoint("api", "pinecone", "speakers", name), nil, "", "Unknown error deleting speaker", &res); err != nil {
		return VectorDeleteResult{}, fmt.Errorf("delete index speaker: %w", err)
	}
	return res, nil
}

// DeleteVectorEmbedding removes one voice sample from the index.
func (c *Client) DeleteVectorEmbedding(ctx context.Context, id string) (VectorDeleteResult, error) {
	var res VectorDeleteResult
	if err := c.do(ctx, http.MethodDelete, c.endpoint("api", "pinecone", "embeddings", id), nil, "", "Unknown error deleting embedding", &res); err != nil {
		return VectorDeleteResult{}, fmt.Errorf("delete index embedding: %w", err)
	}
	return res, nil
}

// Audio opens the raw audio stream of one utterance. The caller closes it.
func (c *Client) Audio(ctx context.Context, conversationID, utteranceID ID) (io.ReadCloser, string, error) {
	endpoint := c.endpoint("api", "audio", conversationID.String(), utteranceID.String())
	resp, err := c.send(ctx, http.MethodGet, endpoint, nil, "", "Audio not available")
	if err != nil {
		return nil, "", fmt.Errorf("fetch audio: %w", err)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}
