package voicevox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Speaker 是 /speakers 返回的一个角色。
type Speaker struct {
	Name        string  `json:"name"`
	SpeakerUUID string  `json:"speaker_uuid"`
	Styles      []Style `json:"styles"`
	Version     string  `json:"version"`
}

// Style 是角色的一种声线，ID 即合成时使用的话者 ID。
type Style struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// Speakers 调用 GET /speakers 列出可用的话者。
func (c *Client) Speakers(ctx context.Context) ([]Speaker, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.endpoint("speakers", nil), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("[voicevox] speakers 请求失败: %w", err)
	}
	if err := c.checkStatus("speakers", status, body); err != nil {
		return nil, err
	}

	var speakers []Speaker
	if err := json.Unmarshal(body, &speakers); err != nil {
		return nil, fmt.Errorf("[voicevox] speakers: %w: %v", ErrInvalidJSON, err)
	}
	return speakers, nil
}

// Version 调用 GET /version 返回引擎版本。
func (c *Client) Version(ctx context.Context) (string, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.endpoint("version", nil), nil, nil)
	if err != nil {
		return "", fmt.Errorf("[voicevox] version 请求失败: %w", err)
	}
	if err := c.checkStatus("version", status, body); err != nil {
		return "", err
	}

	var version string
	if err := json.Unmarshal(body, &version); err != nil {
		return "", fmt.Errorf("[voicevox] version: %w: %v", ErrInvalidJSON, err)
	}
	return version, nil
}

// FindStyle 按 ID 查找话者和声线，用于在日志中显示可读的名称。
func FindStyle(speakers []Speaker, id int) (Speaker, Style, bool) {
	for _, sp := range speakers {
		for _, st := range sp.Styles {
			if st.ID == id {
				return sp, st, true
			}
		}
	}
	return Speaker{}, Style{}, false
}
