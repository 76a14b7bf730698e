package api

type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

type Health struct {
	OK   bool   `json:"ok"`
	Time string `json:"time"`
}

type Transaction struct {
	Author    string `json:"author"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type Block struct {
	Index        uint64        `json:"index"`
	Transactions []Transaction `json:"transactions"`
	Timestamp    int64         `json:"timestamp"`
	PreviousHash string        `json:"previous_hash"`
	Nonce        uint64        `json:"nonce"`
	Hash         string        `json:"hash"`
}

type SubmitRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type SubmitResponse struct {
	OK          bool        `json:"ok"`
	Transaction Transaction `json:"transaction"`
}

type MineResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
	Index     uint64 `json:"index,omitempty"`
	Block     *Block `json:"block,omitempty"`
	Attempts  uint64 `json:"attempts,omitempty"`
	ElapsedMs int64  `json:"elapsedMs,omitempty"`
}

type ChainResponse struct {
	Length     int     `json:"length"`
	Difficulty int     `json:"difficulty"`
	Digest     string  `json:"digest"`
	Chain      []Block `json:"chain"`
}

type PendingResponse struct {
	Count        int           `json:"count"`
	Transactions []Transaction `json:"transactions"`
}

type VerifyResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
