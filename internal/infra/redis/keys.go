package redis

// Key layout:
//
//	quiz:{id}            JSON quiz aggregate
//	quiz:{id}:results    cached JSON results snapshot
//	quiz:{id}:viewers    number of instances holding a live feed
//	quiz:{id}:events     pub/sub channel for quiz events
//	user:{id}            JSON user
//	user:{id}:quizzes    sorted set of quiz ids scored by creation time
//	username:{name}      user id
const eventsPattern = "quiz:*:events"

func quizKey(quizID string) string       { return "quiz:" + quizID }
func resultsKey(quizID string) string    { return "quiz:" + quizID + ":results" }
func viewersKey(quizID string) string    { return "quiz:" + quizID + ":viewers" }
func eventsChannel(quizID string) string { return "quiz:" + quizID + ":events" }
func userKey(userID string) string       { return "user:" + userID }
func ownerIndexKey(userID string) string { return "user:" + userID + ":quizzes" }
func usernameKey(name string) string     { return "username:" + name }
