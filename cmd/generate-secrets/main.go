package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/smarttransit/seat-reservation-backend/internal/utils"
)

func main() {
	metricsPassword := flag.String("metrics-password", "", "password to hash for METRICS_PASSWORD_HASH (read from stdin when empty)")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for SmartTransit Seat Reservation")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, err := utils.GenerateSecret(32)
	if err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}

	password := *metricsPassword
	if password == "" {
		fmt.Print("Metrics password (leave empty to skip): ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		password = strings.TrimSpace(line)
	}

	fmt.Println()
	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)

	if password != "" {
		hash, err := utils.HashPassword(password)
		if err != nil {
			log.Fatalf("Failed to hash metrics password: %v", err)
		}
		fmt.Println("METRICS_USER=prometheus")
		fmt.Printf("METRICS_PASSWORD_HASH=%s\n", hash)
	}

	fmt.Println()
	fmt.Println("Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
