// DoodleDuel - community drawing and guessing platform
// Copyright (C) 2026 DoodleDuel contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

// Bridge talks to the host platform sidecar, which exposes the
// primitive identity/content/media operations over local HTTP.
type Bridge interface {
	Identity
	Content
	Media
}

func NewHTTPBridge(baseURL string) Bridge {
	return &httpBridge{
		base: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type httpBridge struct {
	base   string
	client *http.Client
}

func (b *httpBridge) call(ctx context.Context, path string, request, response interface{}) error {
	body, err := json.Marshal(request)
	if err != nil {
		return errors.Tag(err, "cannot serialize bridge request")
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, b.base+path, bytes.NewReader(body),
	)
	if err != nil {
		return errors.Tag(err, "cannot build bridge request")
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := b.client.Do(req)
	if err != nil {
		return errors.Tag(err, "bridge request failed: "+path)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return &errors.NotFoundError{}
	case http.StatusBadRequest:
		return &errors.ValidationError{Msg: "bridge rejected " + path}
	default:
		return errors.New("bridge status " + res.Status + " on " + path)
	}
	if response == nil {
		return nil
	}
	if err = json.NewDecoder(res.Body).Decode(response); err != nil {
		return errors.Tag(err, "cannot parse bridge response")
	}
	return nil
}

func (b *httpBridge) GetUserById(ctx context.Context, id sharedTypes.UserId) (*User, error) {
	u := &User{}
	err := b.call(ctx, "/identity/getUserById", map[string]string{
		"id": id.String(),
	}, u)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (b *httpBridge) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	err := b.call(ctx, "/identity/getUserByUsername", map[string]string{
		"username": username,
	}, u)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (b *httpBridge) GetModerators(ctx context.Context, community sharedTypes.Community) ([]sharedTypes.UserId, error) {
	response := struct {
		Moderators []sharedTypes.UserId `json:"moderators"`
	}{}
	err := b.call(ctx, "/identity/getModerators", map[string]string{
		"community": community.String(),
	}, &response)
	if err != nil {
		return nil, err
	}
	return response.Moderators, nil
}

func (b *httpBridge) SubmitPost(ctx context.Context, community sharedTypes.Community, title string) (*Post, error) {
	response := struct {
		Id        sharedTypes.PostId `json:"id"`
		CreatedAt int64              `json:"createdAt"`
	}{}
	err := b.call(ctx, "/content/submitPost", map[string]string{
		"community": community.String(),
		"title":     title,
	}, &response)
	if err != nil {
		return nil, err
	}
	return &Post{
		Id:        response.Id,
		Title:     title,
		CreatedAt: time.Unix(response.CreatedAt, 0),
	}, nil
}

func (b *httpBridge) GetPostById(ctx context.Context, id sharedTypes.PostId) (*Post, error) {
	response := struct {
		Id        sharedTypes.PostId `json:"id"`
		Title     string             `json:"title"`
		CreatedAt int64              `json:"createdAt"`
	}{}
	err := b.call(ctx, "/content/getPostById", map[string]string{
		"id": id.String(),
	}, &response)
	if err != nil {
		return nil, err
	}
	return &Post{
		Id:        response.Id,
		Title:     response.Title,
		CreatedAt: time.Unix(response.CreatedAt, 0),
	}, nil
}

func (b *httpBridge) SetPostData(ctx context.Context, id sharedTypes.PostId, data map[string]string) error {
	return b.call(ctx, "/content/setPostData", map[string]interface{}{
		"id":   id.String(),
		"data": data,
	}, nil)
}

func (b *httpBridge) SubmitComment(ctx context.Context, postId sharedTypes.PostId, text string) (sharedTypes.CommentId, error) {
	response := struct {
		Id sharedTypes.CommentId `json:"id"`
	}{}
	err := b.call(ctx, "/content/submitComment", map[string]string{
		"postId": postId.String(),
		"text":   text,
	}, &response)
	if err != nil {
		return "", err
	}
	return response.Id, nil
}

func (b *httpBridge) EditComment(ctx context.Context, commentId sharedTypes.CommentId, text string) error {
	return b.call(ctx, "/content/editComment", map[string]string{
		"id":   commentId.String(),
		"text": text,
	}, nil)
}

func (b *httpBridge) DistinguishComment(ctx context.Context, commentId sharedTypes.CommentId) error {
	return b.call(ctx, "/content/distinguishComment", map[string]string{
		"id": commentId.String(),
	}, nil)
}

func (b *httpBridge) Upload(ctx context.Context, url, mediaType string) (*MediaAsset, error) {
	asset := &MediaAsset{}
	err := b.call(ctx, "/media/upload", map[string]string{
		"url":  url,
		"type": mediaType,
	}, asset)
	if err != nil {
		return nil, err
	}
	return asset, nil
}
