package redis

import "fmt"

const ns = "storeaway:v1"

func KeyListingSummary(listingID string) string {
	return fmt.Sprintf("%s:listing:%s:summary", ns, listingID)
}

func KeyListingReviews(listingID string) string {
	return fmt.Sprintf("%s:listing:%s:reviews", ns, listingID)
}

func KeyListingRatingSummary(listingID string) string {
	return fmt.Sprintf("%s:listing:%s:rating", ns, listingID)
}
