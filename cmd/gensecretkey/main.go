package main

import (
	"fmt"
	"log"

	"formrelay/core"
)

func main() {
	log.Printf("🔑 Generating new organization secret key...")

	// Same format as the keys minted by POST /organizations, for manual
	// provisioning and key rotation
	secretKey, err := core.NewSecretKey("sk")
	if err != nil {
		log.Fatalf("❌ Failed to generate secret key: %v", err)
	}

	fmt.Printf("Generated secret key: %s\n", secretKey)
	log.Printf("✅ Successfully generated organization secret key")
}
