package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"consolegw/internal/auth"
	"consolegw/internal/constants"
	"consolegw/internal/types"
	"consolegw/internal/utils"
)

func main() {
	godotenv.Load()

	serverURL := flag.String("server", utils.GetEnv("CONSOLEGW_SERVER", "http://localhost:6080"), "gateway base URL")
	host := flag.String("host", "", "console backend host")
	port := flag.Int("port", 0, "console backend port")
	consoleType := flag.String("type", constants.ConsoleNovnc, "console type: novnc, spice-html5 or serial")
	accessPath := flag.String("path", "", "internal access path for gateway-multiplexed backends")
	flag.Parse()

	if *host == "" || *port == 0 {
		fmt.Fprintln(os.Stderr, "Usage: authctl -host <backend-host> -port <backend-port> [-type novnc] [-path /console/abc]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	info := auth.ConnectInfo{
		Host:               *host,
		Port:               *port,
		ConsoleType:        *consoleType,
		InternalAccessPath: *accessPath,
	}
	if err := info.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid console endpoint: %v\n", err)
		os.Exit(2)
	}

	body, _ := json.Marshal(info)
	client := &http.Client{Timeout: 10 * time.Second}
	reqURL := strings.TrimSuffix(*serverURL, "/") + constants.EndpointRegister

	resp, err := client.Post(reqURL, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "register request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "gateway answered %s\n", resp.Status)
		os.Exit(1)
	}

	var tok types.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		fmt.Fprintf(os.Stderr, "bad response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token:      %s\n", tok.Token)
	fmt.Printf("access url: %s\n", tok.AccessURL)
	fmt.Printf("expires in: %ds\n", tok.ExpiresIn)
}
