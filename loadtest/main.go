package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws/chat"
	PairCount = 50 // 50 pairs = 100 users
	MsgCount  = 20 // Messages per user
)

type AuthResponse struct {
	Token string `json:"access_token"`
	ID    int    `json:"id"`
}

type ConversationResponse struct {
	ID int `json:"id"`
}

func main() {
	log.Printf("starting load test: %d users, %d messages each", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	// Pairs: user 0 talks to user 1, user 2 talks to user 3...
	for i := 0; i < PairCount; i++ {
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
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)
	pass := "password123"

	authA := authenticate(userA, pass)
	authB := authenticate(userB, pass)
	if authA == nil || authB == nil {
		return
	}

	conversationID := startConversation(authA.Token, authB.ID)
	if conversationID == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go chatter(&wg, conversationID, authA.Token, userA)
	go chatter(&wg, conversationID, authB.Token, userB)
	wg.Wait()
}

func authenticate(username, password string) *AuthResponse {
	email := username + "@loadtest.local"

	register, _ := json.Marshal(map[string]string{
		"email":    email,
		"username": username,
		"fullname": "Load Tester",
		"password": password,
	})
	// Ignore registration failures: the user may exist from a previous run
	if resp, err := http.Post(BaseURL+"/register", "application/json", bytes.NewReader(register)); err == nil {
		resp.Body.Close()
	}

	login, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(BaseURL+"/login", "application/json", bytes.NewReader(login))
	if err != nil {
		log.Printf("login failed for %s: %v", username, err)
		return nil
	}
	defer resp.Body.Close()

	auth := &AuthResponse{}
	if err := json.NewDecoder(resp.Body).Decode(auth); err != nil || auth.Token == "" {
		log.Printf("bad login response for %s", username)
		return nil
	}
	return auth
}

func startConversation(token string, otherID int) int {
	body, _ := json.Marshal(map[string]int{"user_id": otherID})
	req, _ := http.NewRequest(http.MethodPost, BaseURL+"/api/chat/conversations", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("start conversation failed: %v", err)
		return 0
	}
	defer resp.Body.Close()

	conversation := &ConversationResponse{}
	if err := json.NewDecoder(resp.Body).Decode(conversation); err != nil {
		return 0
	}
	return conversation.ID
}

func chatter(wg *sync.WaitGroup, conversationID int, token, username string) {
	defer wg.Done()

	url := fmt.Sprintf("%s/%d?token=%s", WSURL, conversationID, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Printf("dial failed for %s: %v", username, err)
		return
	}
	defer conn.Close()

	// Drain inbound events so the server's send buffer never fills
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < MsgCount; i++ {
		frame, _ := json.Marshal(map[string]string{
			"type":    "send_message",
			"content": fmt.Sprintf("msg %d from %s", i, username),
		})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("write failed for %s: %v", username, err)
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}
