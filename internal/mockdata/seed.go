package mockdata

import "github.com/shelfwise/bookcat/internal/domain"

func seedBooks() []domain.Book {
	return []domain.Book{
		{ID: 1, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Genre: "Fiction", YearPublished: 1925},
		{ID: 2, Title: "To Kill a Mockingbird", Author: "Harper Lee", Genre: "Fiction", YearPublished: 1960},
		{ID: 3, Title: "1984", Author: "George Orwell", Genre: "Dystopian", YearPublished: 1949},
	}
}

func seedAuthors() []domain.Author {
	return []domain.Author{
		{ID: 1, Name: "F. Scott Fitzgerald"},
		{ID: 2, Name: "Harper Lee"},
		{ID: 3, Name: "George Orwell"},
	}
}

func seedGenres() []domain.Genre {
	return []domain.Genre{
		{ID: 1, Name: "Fiction"},
		{ID: 2, Name: "Dystopian"},
		{ID: 3, Name: "Non-Fiction"},
	}
}

func seedDocuments() []domain.Document {
	return []domain.Document{
		{ID: 1, Name: "document1.pdf", Size: "2.5 MB", UploadDate: "2024-01-15", Status: "Processed"},
		{ID: 2, Name: "document2.docx", Size: "1.2 MB", UploadDate: "2024-01-14", Status: "Processing"},
		{ID: 3, Name: "document3.txt", Size: "0.5 MB", UploadDate: "2024-01-13", Status: "Failed"},
	}
}

func seedUsers() []domain.User {
	return []domain.User{
		{ID: 1, Username: "admin", Email: "admin@example.com", Role: "Admin", Status: "Active"},
		{ID: 2, Username: "user1", Email: "user1@example.com", Role: "User", Status: "Active"},
		{ID: 3, Username: "user2", Email: "user2@example.com", Role: "Editor", Status: "Inactive"},
	}
}

func seedRoles() []domain.Role {
	return []domain.Role{
		{ID: 1, Name: "admin", CanRead: true},
		{ID: 2, Name: "user", CanRead: true},
	}
}

// searchCorpus is the fixed set of retrieval hits served offline.
var searchCorpus = []domain.SearchResult{
	{
		ID:    1,
		Title: "Introduction to Machine Learning",
		Content: "Machine learning is a subset of artificial intelligence that focuses on algorithms and " +
			"statistical models that enable computers to improve their performance on a specific task " +
			"through experience.",
		Source:   "ml_textbook.pdf",
		Score:    0.95,
		Metadata: domain.SearchMetadata{Page: 15, Chapter: "Chapter 1: Fundamentals"},
	},
	{
		ID:    2,
		Title: "Deep Learning Fundamentals",
		Content: "Deep learning uses neural networks with multiple layers to model and understand complex " +
			"patterns in data. It has revolutionized fields like computer vision and natural language processing.",
		Source:   "deep_learning_guide.pdf",
		Score:    0.87,
		Metadata: domain.SearchMetadata{Page: 42, Chapter: "Chapter 3: Neural Networks"},
	},
	{
		ID:    3,
		Title: "Natural Language Processing",
		Content: "NLP combines computational linguistics with machine learning to help computers understand, " +
			"interpret, and generate human language in a valuable way.",
		Source:   "nlp_handbook.pdf",
		Score:    0.82,
		Metadata: domain.SearchMetadata{Page: 8, Chapter: "Chapter 1: Introduction to NLP"},
	},
}
