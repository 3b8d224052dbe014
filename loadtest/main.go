// Command loadtest drives pairs of users through the full messaging flow:
// signup, signin, conversation setup, then message spam over REST with
// realtime fan-out over the websocket. Point it at a running server.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	baseURL   = flag.String("base", "http://localhost:8080", "server base URL")
	wsURL     = flag.String("ws", "ws://localhost:8080/ws", "websocket URL")
	pairCount = flag.Int("pairs", 50, "conversation pairs to run")
	msgCount  = flag.Int("messages", 20, "messages per user")
)

type authResponse struct {
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	AccessToken string `json:"access_token"`
}

type conversationResponse struct {
	ID int64 `json:"id"`
}

type messageResponse struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	Status         string `json:"status"`
}

func main() {
	flag.Parse()
	log.Printf("starting load test: %d users, %d messages each", *pairCount*2, *msgCount)

	var wg sync.WaitGroup
	for i := 0; i < *pairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}
	wg.Wait()
	log.Println("load test complete")
}

func runPair(pairID int) {
	tokenA, idA := authenticate(fmt.Sprintf("u_%d_a", pairID))
	tokenB, idB := authenticate(fmt.Sprintf("u_%d_b", pairID))
	if tokenA == "" || tokenB == "" {
		return
	}

	convID := createConversation(tokenA, idB)
	if convID == 0 {
		return
	}

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go spamChat(&wsWg, tokenA, idA, convID)
	go spamChat(&wsWg, tokenB, idB, convID)
	wsWg.Wait()
}

// authenticate signs the user up, ignoring conflicts from earlier runs, then
// signs in for a token.
func authenticate(username string) (string, int64) {
	email := username + "@loadtest.local"
	resp, err := postJSON("/signup", map[string]string{
		"username": username,
		"email":    email,
		"name":     username,
		"password": "password123",
	})
	if err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	resp, err = postJSON("/signin", map[string]string{
		"email":    email,
		"password": "password123",
	})
	if err != nil {
		log.Printf("signin failed [%s]: %v", username, err)
		return "", 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("signin rejected [%s]: %s", username, resp.Status)
		return "", 0
	}

	var data authResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.AccessToken, data.User.ID
}

func createConversation(token string, targetID int64) int64 {
	body, _ := json.Marshal(map[string]any{
		"type":            "direct",
		"participant_ids": []int64{targetID},
	})
	req, _ := http.NewRequest("POST", *baseURL+"/api/conversations", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("create conversation failed: %v", err)
		return 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Printf("create conversation rejected: %s", resp.Status)
		return 0
	}

	var data conversationResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.ID
}

// spamChat joins the socket as userID and pushes messages: each is persisted
// over REST first, then fanned out by sending the persisted record back over
// the socket, the way a real client drives delivery.
func spamChat(wg *sync.WaitGroup, token string, userID, convID int64) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", *wsURL, token), nil)
	if err != nil {
		log.Printf("ws connect failed [user %d]: %v", userID, err)
		return
	}
	defer conn.Close()

	// Drain server frames so the write buffer never backs up.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	join := map[string]any{
		"event": "join",
		"data":  map[string]int64{"user_id": userID},
	}
	if err := conn.WriteJSON(join); err != nil {
		log.Printf("join failed [user %d]: %v", userID, err)
		return
	}

	for i := 0; i < *msgCount; i++ {
		msg := persistMessage(token, convID, fmt.Sprintf("load test message %d from user %d", i, userID))
		if msg == nil {
			continue
		}

		frame := map[string]any{"event": "send_message", "data": msg}
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("send failed [user %d]: %v", userID, err)
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("user %d finished sending %d messages", userID, *msgCount)
}

func persistMessage(token string, convID int64, content string) *messageResponse {
	body, _ := json.Marshal(map[string]any{
		"conversation_id": convID,
		"content":         content,
	})
	req, _ := http.NewRequest("POST", *baseURL+"/api/messages", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("persist message failed: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Printf("persist message rejected: %s", resp.Status)
		return nil
	}

	var msg messageResponse
	json.NewDecoder(resp.Body).Decode(&msg)
	return &msg
}

func postJSON(endpoint string, data any) (*http.Response, error) {
	body, _ := json.Marshal(data)
	return http.Post(*baseURL+endpoint, "application/json", bytes.NewReader(body))
}
