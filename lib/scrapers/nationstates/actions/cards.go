package actions

import (
	"context"
	"fmt"
	"net/url"
)

const deckPage = "/template-overall=none/page=deck"

func cardPage(cardId, season string) string {
	return fmt.Sprintf("%s/card=%s/season=%s", deckPage, url.PathEscape(cardId), url.PathEscape(season))
}

func (c Client) JunkCard(ctx context.Context, cardId, season string) (bool, error) {
	return c.do(ctx, "JunkCard", deckPage, url.Values{
		"page":   {"ajax3"},
		"a":      {"junkcard"},
		"card":   {cardId},
		"season": {season},
	}, contains("Your Deck"))
}

func (c Client) OpenPack(ctx context.Context) (bool, error) {
	return c.do(ctx, "OpenPack", deckPage, url.Values{
		"open_loot_box": {"1"},
	}, contains("Tap cards to reveal..."))
}

func (c Client) Ask(ctx context.Context, price, cardId, season string) (bool, error) {
	return c.do(ctx, "Ask", cardPage(cardId, season), url.Values{
		"auction_ask":    {price},
		"auction_submit": {"ask"},
	}, contains(fmt.Sprintf("Your ask of %s has been lodged.", price)))
}

func (c Client) Bid(ctx context.Context, price, cardId, season string) (bool, error) {
	return c.do(ctx, "Bid", cardPage(cardId, season), url.Values{
		"auction_bid":    {price},
		"auction_submit": {"bid"},
	}, contains(fmt.Sprintf("Your bid of %s has been lodged.", price)))
}

func (c Client) RemoveAsk(ctx context.Context, price, cardId, season string) (bool, error) {
	return c.do(ctx, "RemoveAsk", cardPage(cardId, season), url.Values{
		"new_price":        {price},
		"remove_ask_price": {price},
	}, contains("Removed your ask for "+price))
}

func (c Client) RemoveBid(ctx context.Context, price, cardId, season string) (bool, error) {
	return c.do(ctx, "RemoveBid", cardPage(cardId, season), url.Values{
		"new_price":        {price},
		"remove_bid_price": {price},
	}, contains("Removed your bid for "+price))
}

// ExpandDeck buys more deck capacity at `price` bank.
func (c Client) ExpandDeck(ctx context.Context, price string) (bool, error) {
	return c.do(ctx, "ExpandDeck", deckPage, url.Values{
		"embiggen_deck": {price},
	}, contains("Increased deck capacity from"))
}

func (c Client) AddToCollection(ctx context.Context, cardId, season, collectionId string) (bool, error) {
	return c.do(ctx, "AddToCollection", cardPage(cardId, season), url.Values{
		"manage_collections":         {"1"},
		"modify_card_in_collection":  {"1"},
		"collection_" + collectionId: {"1"},
		"save_collection":            {"1"},
	}, contains("Updated collections."))
}

func (c Client) RemoveFromCollection(ctx context.Context, cardId, season, collectionId string) (bool, error) {
	return c.do(ctx, "RemoveFromCollection", cardPage(cardId, season), url.Values{
		"manage_collections":         {"1"},
		"modify_card_in_collection":  {"1"},
		"start":                      {"0"},
		"collection_" + collectionId: {"0"},
		"save_collection":            {"1"},
	}, contains("Updated collections."))
}

func (c Client) CreateCollection(ctx context.Context, name string) (bool, error) {
	return c.do(ctx, "CreateCollection", deckPage, url.Values{
		"edit":            {"1"},
		"collection_name": {name},
		"save_collection": {"1"},
	}, contains("Created collection!"))
}

// DeleteCollection succeeds when the deck page comes back with the
// collection banner.
func (c Client) DeleteCollection(ctx context.Context, name string) (bool, error) {
	return c.do(ctx, "DeleteCollection", deckPage, url.Values{
		"edit":              {"1"},
		"collection_name":   {name},
		"delete_collection": {"1"},
	}, contains("Created collection!"))
}
