package models

// Message is an opaque relayed chat message. When IsEncrypted is set the
// Content field carries ciphertext and IV produced client-side; the server
// never inspects either.
type Message struct {
	ID     string `json:"id"`
	Room   string `json:"room"`
	Author string `json:"author,omitempty"`
	TS     int64  `json:"ts"`
	// Content is ciphertext (base64) when IsEncrypted, plaintext otherwise.
	Content     string `json:"content"`
	IV          string `json:"iv,omitempty"`
	IsEncrypted bool   `json:"is_encrypted"`
}
