package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListSpeakers returns the full roster with statistics.
func (c *Client) ListSpeakers(ctx context.Context) ([]Speaker, error) {
	var speakers []Speaker
	if err := c.do(ctx, http.MethodGet, c.endpoint("api", "speakers"), nil, "", "Failed to load speakers", &speakers); err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	return speakers, nil
}

// CreateSpeaker adds a speaker. The backend returns the existing speaker if
// the name is already taken.
func (c *Client) CreateSpeaker(ctx context.Context, name string) (Speaker, error) {
	var sp Speaker
	form := url.Values{"name": {name}}
	if err := c.sendForm(ctx, http.MethodPost, c.endpoint("api", "speakers"), form, "Failed to create speaker", &sp); err != nil {
		return Speaker{}, fmt.Errorf("create speaker: %w", err)
	}
	return sp, nil
}

// RenameSpeaker changes a speaker's name.
func (c *Client) RenameSpeaker(ctx context.Context, id ID, name string) (Speaker, error) {
	var sp Speaker
	form := url.Values{"name": {name}}
	if err := c.sendForm(ctx, http.MethodPut, c.endpoint("api", "speakers", id.String()), form, "Failed to update speaker", &sp); err != nil {
		return Speaker{}, fmt.Errorf("rename speaker: %w", err)
	}
	return sp, nil
}

// DeleteSpeaker removes a speaker. The backend refuses while utterances
// still reference it.
func (c *Client) DeleteSpeaker(ctx context.Context, id ID) (DeleteResult, error) {
	var res DeleteResult
	if err := c.do(ctx, http.MethodDelete, c.endpoint("api", "speakers", id.String()), nil, "", "Failed to delete speaker", &res); err != nil {
		return DeleteResult{}, fmt.Errorf("delete speaker: %w", err)
	}
	return res, nil
}

// ReassignAllUtterances moves every utterance of from, in every
// conversation, to to.
func (c *Client) ReassignAllUtterances(ctx context.Context, from, to ID) (BatchResult, error) {
	var res BatchResult
	form := url.Values{"to_speaker_id": {to.String()}}
	endpoint := c.endpoint("api", "speakers", from.String(), "update-all-utterances")
	if err := c.sendForm(ctx, http.MethodPut, endpoint, form, "Unknown reassignment error", &res); err != nil {
		return BatchResult{}, fmt.Errorf("reassign utterances: %w", err)
	}
	return res, nil
}

// ListConversations returns conversation summaries.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var convs []ConversationSummary
	if err := c.do(ctx, http.MethodGet, c.endpoint("api", "conversations"), nil, "", "Failed to load conversations", &convs); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// GetConversation returns a conversation with its utterances.
func (c *Client) GetConversation(ctx context.Context, id ID) (Conversation, error) {
	var conv Conversation
	if err := c.do(ctx, http.MethodGet, c.endpoint("api", "conversations", id.String()), nil, "", "Failed to fetch conversation", &conv); err != nil {
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// RenameConversation sets a conversation's display name.
func (c *Client) RenameConversation(ctx context.Context, id ID, displayName string) (ConversationResult, error) {
	var res ConversationResult
	form := url.Values{"display_name": {displayName}}
	if err := c.sendForm(ctx, http.MethodPut, c.endpoint("api", "conversations", id.String()), form, "Failed to update title", &res); err != nil {
		return ConversationResult{}, fmt.Errorf("rename conversation: %w", err)
	}
	return res, nil
}

// DeleteConversation removes a conversation and its utterances.
func (c *Client) DeleteConversation(ctx context.Context, id ID) error {
	if err := c.do(ctx, http.MethodDelete, c.endpoint("api", "conversations", id.String()), nil, "", "Failed to delete conversation", nil); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// UpdateUtteranceSpeaker reassigns a single utterance.
func (c *Client) UpdateUtteranceSpeaker(ctx context.Context, id, speakerID ID) (UtteranceResult, error) {
	var res UtteranceResult
	body := UtteranceUpdate{SpeakerID: IDPtr(speakerID)}
	if err := c.sendJSON(ctx, http.MethodPut, c.endpoint("api", "utterances", id.String()), body, "Unknown update error", &res); err != nil {
		return UtteranceResult{}, fmt.Errorf("update utterance speaker: %w", err)
	}
	return res, nil
}

// UpdateUtteranceText replaces a single utterance's text. The text is sent
// exactly as given.
func (c *Client) UpdateUtteranceText(ctx context.Context, id ID, text string) (UtteranceResult, error) {
	var res UtteranceResult
	body := UtteranceUpdate{Text: StringPtr(text)}
	if err := c.sendJSON(ctx, http.MethodPut, c.endpoint("api", "utterances", id.String()), body, "Failed to update text", &res); err != nil {
		return UtteranceResult{}, fmt.Errorf("update utterance text: %w", err)
	}
	return res, nil
}

// ReassignConversationSpeaker retargets every utterance of from within one
// conversation in a single server-side operation.
func (c *Client) ReassignConversationSpeaker(ctx context.Context, conversationID, from, to ID) (BatchResult, error) {
	var res BatchResult
	endpoint := c.endpoint("api", "conversations", conversationID.String(), "speakers", from.String())
	if err := c.sendJSON(ctx, http.MethodPut, endpoint, BatchReassign{NewSpeakerID: to}, "Unknown update error", &res); err != nil {
		return BatchResult{}, fmt.Errorf("reassign conversation speaker: %w", err)
	}
	return res, nil
}
