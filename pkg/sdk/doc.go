// Package ragchat embeds the ragchat retrieval pipeline in a Go program.
//
// The client runs ingestion and chat in process, against an in-memory index
// by default or a Valkey/Redis search index:
//
//	client, _ := ragchat.New(ctx,
//	    ragchat.WithStorageDir("/var/lib/myapp/rag"),
//	    ragchat.WithValkey("localhost:6379", ""),
//	    ragchat.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	f, _ := os.Open("handbook.pdf")
//	results, _ := client.Upload(ctx, ragchat.File{Name: "handbook.pdf", Content: f})
//	answer, _ := client.Chat(ctx, "what does the handbook say about leave?", 0)
//
// Without WithEmbedder a deterministic feature-hashing embedder is used, which
// needs no network access and is good enough for keyword-style retrieval.
package ragchat
